package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperengineering/postrater/internal/types"
)

// UnitOfWork collects the rating writes of one scoring batch and applies
// them in a single atomic commit. Nothing staged is durable until Commit.
//
// Staged embeddings are visible through Embeddings, so later posts in the
// same batch are compared against earlier ones.
type UnitOfWork struct {
	mu     sync.Mutex
	w      RatingWriter
	staged []types.StagedRating
	closed bool
}

// NewUnitOfWork starts a unit of work backed by w.
func NewUnitOfWork(w RatingWriter) *UnitOfWork {
	return &UnitOfWork{w: w}
}

// Stage records rating as the rating of post. The rating's post id is
// set to post.ID.
func (u *UnitOfWork) Stage(post types.Post, rating types.Rating) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return ErrUnitClosed
	}

	rating.PostID = post.ID
	u.staged = append(u.staged, types.StagedRating{Post: post, Rating: rating})
	return nil
}

// Len returns the number of staged ratings.
func (u *UnitOfWork) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.staged)
}

// Staged returns a copy of the staged ratings in staging order.
func (u *UnitOfWork) Staged() []types.StagedRating {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]types.StagedRating, len(u.staged))
	copy(out, u.staged)
	return out
}

// Embeddings returns the committed embeddings followed by the staged ones.
// Staged entries have a zero RatingID.
func (u *UnitOfWork) Embeddings(ctx context.Context) ([]types.StoredEmbedding, error) {
	committed, err := u.w.ListEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]types.StoredEmbedding, 0, len(committed)+len(u.staged))
	out = append(out, committed...)
	for _, s := range u.staged {
		if len(s.Rating.Embedding) == 0 {
			continue
		}
		out = append(out, types.StoredEmbedding{
			PostID:    s.Post.ID,
			Embedding: s.Rating.Embedding,
		})
	}
	return out, nil
}

// Commit writes every staged rating atomically and closes the unit of
// work. On failure nothing is written and the staged ratings are discarded.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true

	staged := u.staged
	u.staged = nil

	if err := u.w.CommitRatings(ctx, staged); err != nil {
		return fmt.Errorf("commit %d ratings: %w", len(staged), err)
	}
	return nil
}

// Rollback discards every staged rating and closes the unit of work.
// Calling it after Commit or Rollback has no effect.
func (u *UnitOfWork) Rollback() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.closed = true
	u.staged = nil
}
