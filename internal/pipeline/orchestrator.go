// Package pipeline drives scoring batches: embed, deduplicate, score, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/postrater/internal/scoring"
	"github.com/hyperengineering/postrater/internal/similarity"
	"github.com/hyperengineering/postrater/internal/store"
	"github.com/hyperengineering/postrater/internal/types"
)

// DefaultThreshold is the similarity at or above which a post is a duplicate.
const DefaultThreshold = 0.90

// PostStore is the storage surface a batch run needs.
type PostStore interface {
	store.RatingWriter
	ListUnratedPosts(ctx context.Context) ([]types.Post, error)
}

// PostEmbedder turns a post into its embedding vector.
type PostEmbedder interface {
	EmbedPost(ctx context.Context, title, content string) ([]float32, error)
}

// Options tunes a batch run. Zero values select the defaults.
type Options struct {
	Threshold    float64
	EmbedTimeout time.Duration
	ScoreTimeout time.Duration
}

// Orchestrator runs scoring batches over the unrated published posts.
type Orchestrator struct {
	store    PostStore
	embedder PostEmbedder
	engine   *similarity.Engine
	scorer   scoring.Scorer
	opts     Options
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(st PostStore, embedder PostEmbedder, scorer scoring.Scorer, opts Options) *Orchestrator {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	return &Orchestrator{
		store:    st,
		embedder: embedder,
		engine:   similarity.NewEngine(),
		scorer:   scorer,
		opts:     opts,
	}
}

// Run executes one batch under a fresh run id.
func (o *Orchestrator) Run(ctx context.Context) (*types.BatchResult, error) {
	return o.RunBatch(ctx, ulid.Make().String())
}

// RunBatch processes every unrated published post present when the batch
// starts, sequentially and in query order. Per-post failures are logged and
// counted. All ratings are committed together at the end; if the commit
// fails, or ctx is cancelled first, nothing is written.
func (o *Orchestrator) RunBatch(ctx context.Context, runID string) (*types.BatchResult, error) {
	result := &types.BatchResult{RunID: runID, StartedAt: time.Now().UTC()}
	log := slog.With("component", "pipeline", "run_id", runID)

	posts, err := o.store.ListUnratedPosts(ctx)
	if err != nil {
		result.FinishedAt = time.Now().UTC()
		return result, fmt.Errorf("list unrated posts: %w", err)
	}
	result.Candidates = len(posts)

	log.Info("scoring batch started", "candidates", len(posts))

	uow := store.NewUnitOfWork(o.store)

	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			staged := uow.Len()
			uow.Rollback()
			result.FinishedAt = time.Now().UTC()
			log.Warn("scoring batch cancelled, staged ratings discarded",
				"staged", staged,
				"error", err,
			)
			return result, err
		}

		rating, err := o.ratePost(ctx, uow, post)
		if err != nil {
			result.Errors++
			log.Error("post skipped",
				"post_id", post.ID,
				"error", err,
			)
			continue
		}

		if err := uow.Stage(post, *rating); err != nil {
			result.Errors++
			log.Error("stage rating failed", "post_id", post.ID, "error", err)
			continue
		}

		if rating.IsDuplicate() {
			result.Duplicates++
		} else {
			result.Processed++
		}
	}

	if err := uow.Commit(ctx); err != nil {
		uow.Rollback()
		result.FinishedAt = time.Now().UTC()
		log.Error("scoring batch commit failed, all ratings rolled back",
			"processed", result.Processed,
			"duplicates", result.Duplicates,
			"errors", result.Errors,
			"error", err,
		)
		return result, fmt.Errorf("commit batch: %w", err)
	}

	result.Committed = true
	result.FinishedAt = time.Now().UTC()
	log.Info("scoring batch completed",
		"processed", result.Processed,
		"duplicates", result.Duplicates,
		"errors", result.Errors,
		"duration", result.FinishedAt.Sub(result.StartedAt).String(),
	)
	return result, nil
}

// ratePost embeds a post, checks it against the stored and staged
// embeddings and returns either a duplicate rating or a scored one.
func (o *Orchestrator) ratePost(ctx context.Context, uow *store.UnitOfWork, post types.Post) (*types.Rating, error) {
	vec, err := o.embed(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	match := o.engine.MostSimilar(ctx, uow, vec)

	if match.Score >= o.opts.Threshold {
		slog.Info("duplicate post detected",
			"component", "pipeline",
			"post_id", post.ID,
			"similar_post_id", match.PostID,
			"similarity", match.Score,
		)
		r := types.DuplicateRating(post.ID, vec, match.Score)
		return &r, nil
	}

	assessment, err := o.score(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	r := types.RatingFromAssessment(post.ID, *assessment, vec, match.Score)
	return &r, nil
}

func (o *Orchestrator) embed(ctx context.Context, post types.Post) ([]float32, error) {
	ctx, cancel := withOptionalTimeout(ctx, o.opts.EmbedTimeout)
	defer cancel()
	return o.embedder.EmbedPost(ctx, post.Title, post.Content)
}

func (o *Orchestrator) score(ctx context.Context, post types.Post) (*types.Assessment, error) {
	ctx, cancel := withOptionalTimeout(ctx, o.opts.ScoreTimeout)
	defer cancel()

	a, err := o.scorer.Score(ctx, post.Title, post.Content)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("timed out after %s: %w", o.opts.ScoreTimeout, err)
	}
	return a, err
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
