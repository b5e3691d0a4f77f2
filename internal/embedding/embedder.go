package embedding

import (
	"context"
	"errors"
)

var (
	// ErrEmptyInput is returned when the text to embed is blank.
	ErrEmptyInput = errors.New("embedding input is empty")
	// ErrInvalidEmbedding is returned when the provider yields an unusable vector.
	ErrInvalidEmbedding = errors.New("invalid embedding")
)

// Embedder defines the interface contract for embedding generation services.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}
