package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/hyperengineering/postrater/internal/types"
)

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)

var postColumns = []string{
	"id", "title", "content", "published", "ipfs_hash", "author_address",
	"user_rating", "ai_rating_id", "internal_id", "created_at",
}

var ratingColumns = []string{
	"id", "post_id", "rating", "justification", "sentiment_label", "sentiment_score",
	"bias_score", "bias_direction", "originality_score", "similarity_score",
	"readability_flesch_kincaid", "readability_gunning_fog", "main_topic",
	"secondary_topics", "embedding", "created_at",
}

// SQLiteStore represents the SQLite-backed post and rating database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer; also keeps one shared :memory: database.
	db.SetMaxOpenConns(1)

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListUnratedPosts returns every published post without a rating reference,
// in id order.
func (s *SQLiteStore) ListUnratedPosts(ctx context.Context) ([]types.Post, error) {
	query, args, err := sq.Select(postColumns...).
		From("posts").
		Where(sq.Eq{"ai_rating_id": nil, "published": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unrated posts: %w", err)
	}
	defer rows.Close()

	var posts []types.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		posts = append(posts, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return posts, nil
}

// ListEmbeddings returns every committed, non-null rating embedding.
func (s *SQLiteStore) ListEmbeddings(ctx context.Context) ([]types.StoredEmbedding, error) {
	query, args, err := sq.Select("id", "post_id", "embedding").
		From("ai_post_ratings").
		Where(sq.NotEq{"embedding": nil}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	var out []types.StoredEmbedding
	for rows.Next() {
		var e types.StoredEmbedding
		var blob []byte
		if err := rows.Scan(&e.RatingID, &e.PostID, &blob); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if len(blob) == 0 {
			continue
		}
		e.Embedding = unpackEmbedding(blob)
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return out, nil
}

// CommitRatings inserts every staged rating and attaches it to its post in
// one transaction. Any failure rolls back the whole batch. A post that
// already has a rating yields ErrDuplicateRating or ErrAlreadyRated.
func (s *SQLiteStore) CommitRatings(ctx context.Context, staged []types.StagedRating) error {
	if len(staged) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	nowStr := time.Now().UTC().Format(time.RFC3339Nano)

	for _, sr := range staged {
		postID := sr.Post.ID
		r := sr.Rating

		topics, err := json.Marshal(nonNilTopics(r.SecondaryTopics))
		if err != nil {
			return fmt.Errorf("marshal secondary topics: %w", err)
		}

		var embedding any
		if len(r.Embedding) > 0 {
			embedding = packEmbedding(r.Embedding)
		}

		query, args, err := sq.Insert("ai_post_ratings").
			Columns(ratingColumns[1:]...).
			Values(
				postID, r.Rating, r.Justification, string(r.SentimentLabel), r.SentimentScore,
				r.BiasScore, string(r.BiasDirection), r.OriginalityScore, r.SimilarityScore,
				r.ReadabilityFleschKincaid, r.ReadabilityGunningFog, r.MainTopic,
				string(topics), embedding, nowStr,
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("post %d: %w", postID, ErrDuplicateRating)
			}
			return fmt.Errorf("insert rating for post %d: %w", postID, err)
		}

		ratingID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get rating id: %w", err)
		}

		query, args, err = sq.Update("posts").
			Set("ai_rating_id", ratingID).
			Where(sq.Eq{"id": postID, "ai_rating_id": nil}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}

		res, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("post %d: %w", postID, ErrDuplicateRating)
			}
			return fmt.Errorf("attach rating to post %d: %w", postID, err)
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("post %d: %w", postID, ErrAlreadyRated)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// InsertPosts stores new posts in one transaction and returns their ids.
func (s *SQLiteStore) InsertPosts(ctx context.Context, posts []types.NewPost) ([]int64, error) {
	if len(posts) == 0 {
		return []int64{}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	nowStr := time.Now().UTC().Format(time.RFC3339Nano)
	ids := make([]int64, 0, len(posts))

	for _, p := range posts {
		query, args, err := sq.Insert("posts").
			Columns("title", "content", "published", "ipfs_hash", "author_address", "created_at").
			Values(p.Title, p.Content, p.Published, nullableString(p.IPFSHash), p.AuthorAddress, nowStr).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("post %q: %w", p.Title, ErrDuplicatePost)
			}
			return nil, fmt.Errorf("insert post: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("get post id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return ids, nil
}

// GetPost retrieves a post by ID.
func (s *SQLiteStore) GetPost(ctx context.Context, id int64) (*types.Post, error) {
	query, args, err := sq.Select(postColumns...).From("posts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	p, err := scanPost(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return p, nil
}

// GetRatingByPost retrieves the rating attached to a post.
func (s *SQLiteStore) GetRatingByPost(ctx context.Context, postID int64) (*types.Rating, error) {
	query, args, err := sq.Select(ratingColumns...).
		From("ai_post_ratings").
		Where(sq.Eq{"post_id": postID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	r, err := scanRating(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return r, nil
}

// duplicateTopicsJSON is the stored secondary_topics value of a duplicate
// rating; it must match how CommitRatings encodes topics.
var duplicateTopicsJSON = `["` + types.DuplicateTopic + `"]`

// GetStats returns aggregate post and rating counts.
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var stats types.StoreStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(published), 0),
			COALESCE(SUM(ai_rating_id IS NOT NULL), 0),
			COALESCE(SUM(published AND ai_rating_id IS NULL), 0)
		FROM posts
	`).Scan(&stats.Posts, &stats.PublishedPosts, &stats.RatedPosts, &stats.UnratedPosts)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	query, args, err := sq.Select("COUNT(*)").
		From("ai_post_ratings").
		Where(sq.Eq{
			"main_topic":       types.DuplicateMainTopic,
			"secondary_topics": duplicateTopicsJSON,
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&stats.Duplicates); err != nil {
		return nil, fmt.Errorf("count duplicates: %w", err)
	}

	return &stats, nil
}

// GenerateSnapshot writes a consistent copy of the database to path.
// An existing file at path is replaced.
func (s *SQLiteStore) GenerateSnapshot(ctx context.Context, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}

	// VACUUM INTO refuses to overwrite.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old snapshot: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("vacuum into snapshot: %w", err)
	}

	return nil
}

func packEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func unpackEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nonNilTopics(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}

type scanner interface {
	Scan(dest ...any) error
}

// scanPost scans a row selected with postColumns.
func scanPost(row scanner) (*types.Post, error) {
	var p types.Post
	var content, ipfsHash sql.NullString
	var ratingID, internalID sql.NullInt64
	var createdAt string

	err := row.Scan(
		&p.ID,
		&p.Title,
		&content,
		&p.Published,
		&ipfsHash,
		&p.AuthorAddress,
		&p.UserRating,
		&ratingID,
		&internalID,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	p.Content = content.String
	if ipfsHash.Valid {
		p.IPFSHash = &ipfsHash.String
	}
	if ratingID.Valid {
		p.AIRatingID = &ratingID.Int64
	}
	if internalID.Valid {
		p.InternalID = &internalID.Int64
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		p.CreatedAt = t
	}

	return &p, nil
}

// scanRating scans a row selected with ratingColumns, unpacking the
// embedding BLOB and the secondary topics JSON.
func scanRating(row scanner) (*types.Rating, error) {
	var r types.Rating
	var sentimentLabel, biasDirection, mainTopic sql.NullString
	var sentimentScore, biasScore, originality, similarity, fk, fog sql.NullFloat64
	var topicsJSON, createdAt string
	var embeddingBlob []byte

	err := row.Scan(
		&r.ID,
		&r.PostID,
		&r.Rating,
		&r.Justification,
		&sentimentLabel,
		&sentimentScore,
		&biasScore,
		&biasDirection,
		&originality,
		&similarity,
		&fk,
		&fog,
		&mainTopic,
		&topicsJSON,
		&embeddingBlob,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	r.SentimentLabel = types.SentimentLabel(sentimentLabel.String)
	r.SentimentScore = sentimentScore.Float64
	r.BiasScore = biasScore.Float64
	r.BiasDirection = types.BiasDirection(biasDirection.String)
	r.OriginalityScore = originality.Float64
	r.SimilarityScore = similarity.Float64
	r.ReadabilityFleschKincaid = fk.Float64
	r.ReadabilityGunningFog = fog.Float64
	r.MainTopic = mainTopic.String

	if err := json.Unmarshal([]byte(topicsJSON), &r.SecondaryTopics); err != nil {
		return nil, fmt.Errorf("parse secondary topics JSON: %w", err)
	}
	if len(embeddingBlob) > 0 {
		r.Embedding = unpackEmbedding(embeddingBlob)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		r.CreatedAt = t
	}

	return &r, nil
}
