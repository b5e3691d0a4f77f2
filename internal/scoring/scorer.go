// Package scoring wraps the external content-scoring model.
package scoring

import (
	"context"
	"errors"
	"strings"

	"github.com/hyperengineering/postrater/internal/types"
	"github.com/hyperengineering/postrater/internal/validation"
)

var (
	// ErrInvalidInput is returned when the title or content is blank.
	ErrInvalidInput = errors.New("title and content must be non-empty")

	// ErrMalformedResponse is returned when the model reply is not a JSON object.
	ErrMalformedResponse = errors.New("malformed scoring response")

	// ErrValidation is returned when the reply does not match the rating schema.
	ErrValidation = errors.New("scoring response validation failed")

	// ErrScoring is returned for transport and service failures.
	ErrScoring = errors.New("content scoring failed")
)

// Scorer produces a structured quality assessment for a post.
type Scorer interface {
	Score(ctx context.Context, title, content string) (*types.Assessment, error)
}

// SchemaError lists every field that violated the rating schema.
type SchemaError struct {
	Errors []validation.ValidationError
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.String()
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *SchemaError) Unwrap() error {
	return ErrValidation
}

func checkInput(title, content string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return ErrInvalidInput
	}
	return nil
}
