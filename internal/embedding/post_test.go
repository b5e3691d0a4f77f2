package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns a fixed vector or error and records its input.
type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
	texts []string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	s.texts = append(s.texts, text)
	return s.vec, s.err
}

func (s *stubEmbedder) ModelName() string { return "stub" }

func TestPostText(t *testing.T) {
	assert.Equal(t, "Hello World\nbody", PostText("Hello World", "body"))
}

func TestEmbedPost_FormatsTitleAndContent(t *testing.T) {
	stub := &stubEmbedder{vec: []float32{1, 2, 3}}
	p := NewPostEmbedder(stub, 3)

	vec, err := p.EmbedPost(context.Background(), "Title", "Body")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, []string{"Title\nBody"}, stub.texts)
	assert.Equal(t, "stub", p.ModelName())
}

func TestEmbedPost_BlankInputSkipsProvider(t *testing.T) {
	stub := &stubEmbedder{vec: []float32{1}}
	p := NewPostEmbedder(stub, 0)

	_, err := p.EmbedPost(context.Background(), "  ", "\t")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, stub.calls)
}

func TestEmbedPost_InvalidVectors(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name string
		vec  []float32
		dims int
	}{
		{"empty", []float32{}, 0},
		{"nil", nil, 3},
		{"wrong dimensions", []float32{1, 2}, 3},
		{"nan", []float32{1, nan, 3}, 3},
		{"inf", []float32{inf, 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPostEmbedder(&stubEmbedder{vec: tt.vec}, tt.dims)
			_, err := p.EmbedPost(context.Background(), "t", "c")
			assert.ErrorIs(t, err, ErrInvalidEmbedding)
		})
	}
}

func TestEmbedPost_ProviderErrorPassesThrough(t *testing.T) {
	providerErr := errors.New("connection refused")
	p := NewPostEmbedder(&stubEmbedder{err: providerErr}, 3)

	_, err := p.EmbedPost(context.Background(), "t", "c")
	assert.ErrorIs(t, err, providerErr)
}
