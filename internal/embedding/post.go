package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// PostText formats a post for embedding: the title, a newline, then the content.
func PostText(title, content string) string {
	return title + "\n" + content
}

// PostEmbedder embeds posts and rejects vectors that cannot be stored or compared.
type PostEmbedder struct {
	embedder   Embedder
	dimensions int
}

// NewPostEmbedder wraps e. When dimensions is positive every vector must have
// exactly that length.
func NewPostEmbedder(e Embedder, dimensions int) *PostEmbedder {
	return &PostEmbedder{embedder: e, dimensions: dimensions}
}

// ModelName returns the underlying embedding model name.
func (p *PostEmbedder) ModelName() string {
	return p.embedder.ModelName()
}

// EmbedPost returns the embedding of a post's title and content.
func (p *PostEmbedder) EmbedPost(ctx context.Context, title, content string) ([]float32, error) {
	text := PostText(title, content)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := p.check(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (p *PostEmbedder) check(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidEmbedding)
	}
	if p.dimensions > 0 && len(vec) != p.dimensions {
		return fmt.Errorf("%w: expected %d dimensions, got %d", ErrInvalidEmbedding, p.dimensions, len(vec))
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidEmbedding, i)
		}
	}
	return nil
}
