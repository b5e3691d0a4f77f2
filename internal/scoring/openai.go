package scoring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hyperengineering/postrater/internal/types"
)

// DefaultModel is used when no scoring model is configured.
const DefaultModel = "gemini-2.0-flash"

// Compile-time interface check
var _ Scorer = (*OpenAI)(nil)

// ChatCompletionsService defines the interface for making chat completion calls.
// This abstraction enables testing without calling the real API.
type ChatCompletionsService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI scores posts with an OpenAI-compatible chat completion endpoint in JSON mode.
type OpenAI struct {
	completions ChatCompletionsService
	model       openai.ChatModel
}

// NewOpenAI creates a scorer. An empty baseURL targets api.openai.com and an
// empty model uses DefaultModel.
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return newOpenAI(client.Chat.Completions, model)
}

func newOpenAI(svc ChatCompletionsService, model string) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{
		completions: svc,
		model:       openai.ChatModel(model),
	}
}

// Score asks the model for an assessment of the post and validates the reply.
func (o *OpenAI) Score(ctx context.Context, title, content string) (*types.Assessment, error) {
	if err := checkInput(title, content); err != nil {
		return nil, err
	}

	slog.Debug("scoring post",
		"component", "scorer",
		"title", title,
		"content_length", len(content),
	)

	resp, err := o.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.F(o.model),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(UserPrompt(title, content)),
		}),
		ResponseFormat: openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONObjectParam{
				Type: openai.F(openai.ResponseFormatJSONObjectTypeJSONObject),
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScoring, err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	assessment, err := DecodeAssessment(resp.Choices[0].Message.Content)
	if err != nil {
		slog.Warn("scoring response rejected",
			"component", "scorer",
			"title", title,
			"error", err,
		)
		return nil, err
	}

	slog.Debug("scoring completed",
		"component", "scorer",
		"title", title,
		"rating", assessment.Rating,
	)
	return assessment, nil
}

// ModelName returns the scoring model name
func (o *OpenAI) ModelName() string {
	return string(o.model)
}
