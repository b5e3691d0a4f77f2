package store

import (
	"context"

	"github.com/hyperengineering/postrater/internal/types"
)

// Store defines the interface contract for post and rating storage.
type Store interface {
	RatingWriter
	ListUnratedPosts(ctx context.Context) ([]types.Post, error)
	InsertPosts(ctx context.Context, posts []types.NewPost) ([]int64, error)
	GetPost(ctx context.Context, id int64) (*types.Post, error)
	GetRatingByPost(ctx context.Context, postID int64) (*types.Rating, error)
	GetStats(ctx context.Context) (*types.StoreStats, error)
	SchemaVersion(ctx context.Context) (int64, error)
	GenerateSnapshot(ctx context.Context, path string) error
	Close() error
}

// RatingWriter is the store surface a unit of work needs: the committed
// embeddings and an atomic write of staged ratings.
type RatingWriter interface {
	ListEmbeddings(ctx context.Context) ([]types.StoredEmbedding, error)
	CommitRatings(ctx context.Context, staged []types.StagedRating) error
}
