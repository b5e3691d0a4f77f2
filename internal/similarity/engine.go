package similarity

import (
	"context"
	"log/slog"

	"github.com/hyperengineering/postrater/internal/types"
)

// EmbeddingSource yields every non-null stored embedding.
type EmbeddingSource interface {
	Embeddings(ctx context.Context) ([]types.StoredEmbedding, error)
}

// Match is the most similar stored embedding for a candidate vector.
// Found is false when nothing was compared, either because the store is
// empty or because the lookup failed.
type Match struct {
	Found    bool
	RatingID int64
	PostID   int64
	Score    float64
}

// Engine finds the closest stored embedding by exhaustive cosine comparison.
type Engine struct{}

// NewEngine creates a similarity engine.
func NewEngine() *Engine {
	return &Engine{}
}

// MostSimilar compares vec against every embedding in src and returns the
// best match. Errors reading src are logged and reported as no match with
// score 0 so that the caller proceeds to scoring.
func (e *Engine) MostSimilar(ctx context.Context, src EmbeddingSource, vec []float32) Match {
	stored, err := src.Embeddings(ctx)
	if err != nil {
		slog.Error("similarity lookup failed, treating as no match",
			"component", "similarity",
			"error", err,
		)
		return Match{}
	}

	if len(stored) == 0 {
		slog.Debug("no stored embeddings, similarity is 0",
			"component", "similarity",
		)
		return Match{}
	}

	best := Match{Found: true, Score: -1}
	for _, s := range stored {
		score := Score(vec, s.Embedding)
		if score > best.Score {
			best.RatingID = s.RatingID
			best.PostID = s.PostID
			best.Score = score
		}
	}

	slog.Debug("similarity computed",
		"component", "similarity",
		"compared", len(stored),
		"best_post_id", best.PostID,
		"score", best.Score,
	)
	return best
}

// MaxSimilarity returns the highest similarity in [0, 1] between vec and src.
func (e *Engine) MaxSimilarity(ctx context.Context, src EmbeddingSource, vec []float32) float64 {
	return e.MostSimilar(ctx, src, vec).Score
}
