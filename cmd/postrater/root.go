package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/postrater/internal/config"
	"github.com/hyperengineering/postrater/internal/embedding"
	"github.com/hyperengineering/postrater/internal/pipeline"
	"github.com/hyperengineering/postrater/internal/scoring"
	"github.com/hyperengineering/postrater/internal/store"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:          "postrater",
	Short:        "Postrater - post deduplication and quality scoring",
	SilenceUsage: true,
	RunE:         runServe,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (overrides POSTRATER_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(postsCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// loadConfig loads configuration and installs the default logger.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	slog.SetDefault(newLogger(os.Stderr, cfg.Log))
	return cfg, nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// components are the pieces shared by serve and score.
type components struct {
	store        *store.SQLiteStore
	embedder     *embedding.PostEmbedder
	scorer       *scoring.OpenAI
	orchestrator *pipeline.Orchestrator
}

func newComponents(cfg *config.Config) (*components, error) {
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	embedder := embedding.NewPostEmbedder(
		embedding.NewOpenAI(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model),
		cfg.Embedding.Dimensions,
	)
	slog.Info("embedder initialized", "model", cfg.Embedding.Model, "dimensions", cfg.Embedding.Dimensions)

	scorer := scoring.NewOpenAI(cfg.Scoring.APIKey, cfg.Scoring.BaseURL, cfg.Scoring.Model)
	slog.Info("scorer initialized", "model", cfg.Scoring.Model)

	orch := pipeline.NewOrchestrator(db, embedder, scorer, pipeline.Options{
		Threshold:    cfg.Deduplication.SimilarityThreshold,
		EmbedTimeout: time.Duration(cfg.Embedding.Timeout),
		ScoreTimeout: time.Duration(cfg.Scoring.Timeout),
	})

	return &components{
		store:        db,
		embedder:     embedder,
		scorer:       scorer,
		orchestrator: orch,
	}, nil
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
