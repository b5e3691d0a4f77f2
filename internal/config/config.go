package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server          ServerConfig          `yaml:"server"`
	Database        DatabaseConfig        `yaml:"database"`
	Embedding       EmbeddingConfig       `yaml:"embedding"`
	Scoring         ScoringConfig         `yaml:"scoring"`
	Deduplication   DeduplicationConfig   `yaml:"deduplication"`
	Worker          WorkerConfig          `yaml:"worker"`
	SnapshotStorage SnapshotStorageConfig `yaml:"snapshot_storage"`
	Log             LogConfig             `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig contains embedding service settings.
// The default endpoint is a local Ollama server's OpenAI-compatible API.
type EmbeddingConfig struct {
	APIKey     string   `yaml:"-"` // env-only, never in YAML
	BaseURL    string   `yaml:"base_url"`
	Model      string   `yaml:"model"`
	Dimensions int      `yaml:"dimensions"`
	Timeout    Duration `yaml:"timeout"`
}

// ScoringConfig contains content scoring service settings.
type ScoringConfig struct {
	APIKey  string   `yaml:"-"` // env-only, never in YAML
	BaseURL string   `yaml:"base_url"`
	Model   string   `yaml:"model"`
	Timeout Duration `yaml:"timeout"`
}

// DeduplicationConfig contains similarity deduplication settings.
type DeduplicationConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// WorkerConfig contains background worker settings. A zero interval
// disables the worker.
type WorkerConfig struct {
	ScoringInterval  Duration `yaml:"scoring_interval"`
	SnapshotInterval Duration `yaml:"snapshot_interval"`
}

// SnapshotStorageConfig contains settings for database snapshots and their
// S3-compatible upload. An empty Bucket keeps snapshots local.
type SnapshotStorageConfig struct {
	Path      string   `yaml:"path"`
	Bucket    string   `yaml:"bucket"`
	Endpoint  string   `yaml:"endpoint"`
	Region    string   `yaml:"region"`
	AccessKey string   `yaml:"-"` // env-only, never in YAML
	SecretKey string   `yaml:"-"` // env-only, never in YAML
	UseSSL    *bool    `yaml:"use_ssl"`
	URLExpiry Duration `yaml:"url_expiry"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence:
// defaults → YAML file → .env file → env vars.
// Variables already present in the environment win over the .env file.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("POSTRATER_CONFIG_PATH", "config/postrater.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	if err := loadDotEnv(getEnv("POSTRATER_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	// Load YAML file (file must exist for this function)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	useSSL := true
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/postrater.db",
		},
		Embedding: EmbeddingConfig{
			APIKey:     "ollama",
			BaseURL:    "http://localhost:11434/v1",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			Timeout:    Duration(30 * time.Second),
		},
		Scoring: ScoringConfig{
			Model:   "gemini-2.0-flash",
			Timeout: Duration(120 * time.Second),
		},
		Deduplication: DeduplicationConfig{
			SimilarityThreshold: 0.90,
		},
		Worker: WorkerConfig{
			ScoringInterval:  0,
			SnapshotInterval: 0,
		},
		SnapshotStorage: SnapshotStorageConfig{
			Path:      "data/snapshots/current.db",
			Region:    "us-east-1",
			UseSSL:    &useSSL,
			URLExpiry: Duration(15 * time.Minute),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// loadDotEnv exports the variables of a .env file that are not already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("POSTRATER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	envDuration("POSTRATER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("POSTRATER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("POSTRATER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Database
	if v := os.Getenv("POSTRATER_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Embedding
	if v := os.Getenv("POSTRATER_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("POSTRATER_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("POSTRATER_EMBEDDING_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimensions = n
		}
	}
	envDuration("POSTRATER_EMBEDDING_TIMEOUT", &cfg.Embedding.Timeout)

	// Scoring (OPENAI_API_KEY / OPENAI_BASE_URL are industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Scoring.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Scoring.BaseURL = v
	}
	if v := os.Getenv("POSTRATER_SCORING_MODEL"); v != "" {
		cfg.Scoring.Model = v
	}
	envDuration("POSTRATER_SCORING_TIMEOUT", &cfg.Scoring.Timeout)

	// Deduplication
	if v := os.Getenv("POSTRATER_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Deduplication.SimilarityThreshold = f
		}
	}

	// Worker
	envDuration("POSTRATER_SCORING_INTERVAL", &cfg.Worker.ScoringInterval)
	envDuration("POSTRATER_SNAPSHOT_INTERVAL", &cfg.Worker.SnapshotInterval)

	// Snapshot storage
	if v := os.Getenv("POSTRATER_SNAPSHOT_PATH"); v != "" {
		cfg.SnapshotStorage.Path = v
	}
	if v := os.Getenv("POSTRATER_SNAPSHOT_BUCKET"); v != "" {
		cfg.SnapshotStorage.Bucket = v
	}
	if v := os.Getenv("POSTRATER_S3_ENDPOINT"); v != "" {
		cfg.SnapshotStorage.Endpoint = v
	}
	if v := os.Getenv("POSTRATER_S3_REGION"); v != "" {
		cfg.SnapshotStorage.Region = v
	}
	if v := os.Getenv("POSTRATER_S3_ACCESS_KEY"); v != "" {
		cfg.SnapshotStorage.AccessKey = v
	}
	if v := os.Getenv("POSTRATER_S3_SECRET_KEY"); v != "" {
		cfg.SnapshotStorage.SecretKey = v
	}
	if v := os.Getenv("POSTRATER_S3_USE_SSL"); v != "" {
		useSSL := v == "true" || v == "1"
		cfg.SnapshotStorage.UseSSL = &useSSL
	}
	envDuration("POSTRATER_S3_URL_EXPIRY", &cfg.SnapshotStorage.URLExpiry)

	// Log
	if v := os.Getenv("POSTRATER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("POSTRATER_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// validate checks that configuration values are usable.
// In dev mode (POSTRATER_DEV_MODE=true), API key validation is skipped.
func (c *Config) validate() error {
	t := c.Deduplication.SimilarityThreshold
	if t <= 0 || t > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1], got %v", t)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log format must be json or text, got %q", c.Log.Format)
	}

	if os.Getenv("POSTRATER_DEV_MODE") == "true" {
		return nil
	}

	if c.Scoring.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
