package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/postrater/internal/types"
)

// fakeWriter records commits and serves fixed committed embeddings.
type fakeWriter struct {
	committed []types.StoredEmbedding
	listErr   error
	commitErr error
	commits   [][]types.StagedRating
}

func (f *fakeWriter) ListEmbeddings(ctx context.Context) ([]types.StoredEmbedding, error) {
	return f.committed, f.listErr
}

func (f *fakeWriter) CommitRatings(ctx context.Context, staged []types.StagedRating) error {
	f.commits = append(f.commits, staged)
	return f.commitErr
}

func TestUnitOfWork_StageSetsPostID(t *testing.T) {
	u := NewUnitOfWork(&fakeWriter{})
	require.NoError(t, u.Stage(types.Post{ID: 9}, types.Rating{PostID: 1}))

	staged := u.Staged()
	require.Len(t, staged, 1)
	assert.Equal(t, int64(9), staged[0].Rating.PostID)
	assert.Equal(t, 1, u.Len())
}

func TestUnitOfWork_EmbeddingsIncludeStaged(t *testing.T) {
	w := &fakeWriter{committed: []types.StoredEmbedding{{RatingID: 1, PostID: 1, Embedding: []float32{1, 0}}}}
	u := NewUnitOfWork(w)

	require.NoError(t, u.Stage(types.Post{ID: 2}, types.Rating{Embedding: []float32{0, 1}}))
	require.NoError(t, u.Stage(types.Post{ID: 3}, types.Rating{}))

	got, err := u.Embeddings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.StoredEmbedding{
		{RatingID: 1, PostID: 1, Embedding: []float32{1, 0}},
		{PostID: 2, Embedding: []float32{0, 1}},
	}, got)
}

func TestUnitOfWork_EmbeddingsPropagatesError(t *testing.T) {
	u := NewUnitOfWork(&fakeWriter{listErr: errors.New("disk I/O error")})
	_, err := u.Embeddings(context.Background())
	assert.Error(t, err)
}

func TestUnitOfWork_CommitWritesOnceAndCloses(t *testing.T) {
	w := &fakeWriter{}
	u := NewUnitOfWork(w)
	require.NoError(t, u.Stage(types.Post{ID: 1}, types.Rating{}))
	require.NoError(t, u.Stage(types.Post{ID: 2}, types.Rating{}))

	require.NoError(t, u.Commit(context.Background()))
	require.Len(t, w.commits, 1)
	assert.Len(t, w.commits[0], 2)

	assert.ErrorIs(t, u.Commit(context.Background()), ErrUnitClosed)
	assert.ErrorIs(t, u.Stage(types.Post{ID: 3}, types.Rating{}), ErrUnitClosed)
	assert.Zero(t, u.Len())
}

func TestUnitOfWork_CommitFailureDiscardsStaged(t *testing.T) {
	commitErr := errors.New("database is locked")
	u := NewUnitOfWork(&fakeWriter{commitErr: commitErr})
	require.NoError(t, u.Stage(types.Post{ID: 1}, types.Rating{}))

	err := u.Commit(context.Background())
	assert.ErrorIs(t, err, commitErr)
	assert.Zero(t, u.Len())

	u.Rollback()
}

func TestUnitOfWork_RollbackDiscards(t *testing.T) {
	w := &fakeWriter{}
	u := NewUnitOfWork(w)
	require.NoError(t, u.Stage(types.Post{ID: 1}, types.Rating{Embedding: []float32{1}}))

	u.Rollback()
	u.Rollback()

	assert.Zero(t, u.Len())
	assert.ErrorIs(t, u.Commit(context.Background()), ErrUnitClosed)
	assert.Empty(t, w.commits)
}

func TestUnitOfWork_AgainstSQLite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := seedPosts(t, s, published("a"), published("b"))

	u := NewUnitOfWork(s)
	require.NoError(t, u.Stage(types.Post{ID: ids[0]}, scoredRating([]float32{1, 0})))

	// Staged but not durable.
	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.RatedPosts)

	visible, err := u.Embeddings(ctx)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	require.NoError(t, u.Commit(ctx))

	stats, err = s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.RatedPosts)
}
