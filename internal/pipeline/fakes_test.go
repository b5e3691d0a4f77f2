package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/postrater/internal/embedding"
	"github.com/hyperengineering/postrater/internal/scoring"
	"github.com/hyperengineering/postrater/internal/store"
	"github.com/hyperengineering/postrater/internal/types"
)

// fakeEmbedder returns a fixed vector per post title.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fail    map[string]bool
	calls   int
	onEmbed func(title string)
}

func (f *fakeEmbedder) EmbedPost(ctx context.Context, title, content string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	hook := f.onEmbed
	f.mu.Unlock()

	if hook != nil {
		hook(title)
	}
	if f.fail[title] {
		return nil, errors.New("embedding generation failed: connection refused")
	}
	vec, ok := f.vectors[title]
	if !ok {
		return nil, embedding.ErrInvalidEmbedding
	}
	return vec, nil
}

// fakeScorer returns a fixed assessment and records which titles it scored.
type fakeScorer struct {
	mu         sync.Mutex
	assessment types.Assessment
	fail       map[string]error
	scored     []string
	block      bool
}

func (f *fakeScorer) Score(ctx context.Context, title, content string) (*types.Assessment, error) {
	f.mu.Lock()
	f.scored = append(f.scored, title)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.fail[title]; err != nil {
		return nil, err
	}
	a := f.assessment
	a.SecondaryTopics = append([]string(nil), f.assessment.SecondaryTopics...)
	return &a, nil
}

func (f *fakeScorer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scored...)
}

// failingCommitStore delegates reads to a real store but fails every commit.
type failingCommitStore struct {
	*store.SQLiteStore
	err error
}

func (f *failingCommitStore) CommitRatings(ctx context.Context, staged []types.StagedRating) error {
	return f.err
}

// staleStore returns a fixed snapshot of unrated posts, as a concurrent run
// that listed before another run committed would see.
type staleStore struct {
	*store.SQLiteStore
	posts []types.Post
}

func (s *staleStore) ListUnratedPosts(ctx context.Context) ([]types.Post, error) {
	return s.posts, nil
}

func helloAssessment() types.Assessment {
	return types.Assessment{
		Rating:                   72,
		Justification:            "A short, friendly greeting.",
		SentimentLabel:           types.SentimentPositive,
		SentimentScore:           0.8,
		BiasScore:                0.0,
		BiasDirection:            types.BiasNonPolitical,
		OriginalityScore:         0.3,
		SimilarityScore:          0.66,
		ReadabilityFleschKincaid: 1.2,
		ReadabilityGunningFog:    2.4,
		MainTopic:                "greetings",
		SecondaryTopics:          []string{"hello", "world"},
	}
}

var _ scoring.Scorer = (*fakeScorer)(nil)

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func addPosts(t *testing.T, s *store.SQLiteStore, titles ...string) []int64 {
	t.Helper()
	posts := make([]types.NewPost, len(titles))
	for i, title := range titles {
		posts[i] = types.NewPost{
			Title:         title,
			Content:       "Content of " + title,
			Published:     true,
			AuthorAddress: "0xauthor",
		}
	}
	ids, err := s.InsertPosts(context.Background(), posts)
	require.NoError(t, err)
	return ids
}

func ratingCount(t *testing.T, s *store.SQLiteStore) int {
	t.Helper()
	stored, err := s.ListEmbeddings(context.Background())
	require.NoError(t, err)
	return len(stored)
}
