package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbeddingsService implements EmbeddingsService for testing
type mockEmbeddingsService struct {
	response  *openai.CreateEmbeddingResponse
	err       error
	callCount int
	lastInput []string
	lastModel openai.EmbeddingModel
}

func (m *mockEmbeddingsService) New(ctx context.Context, params openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.callCount++
	m.lastModel = params.Model.Value

	if params.Input.Value != nil {
		if arr, ok := params.Input.Value.(openai.EmbeddingNewParamsInputArrayOfStrings); ok {
			m.lastInput = []string(arr)
		}
	}

	return m.response, m.err
}

func createMockResponse(embeddings ...[]float64) *openai.CreateEmbeddingResponse {
	data := make([]openai.Embedding, len(embeddings))
	for i, emb := range embeddings {
		data[i] = openai.Embedding{Embedding: emb, Index: int64(i)}
	}
	return &openai.CreateEmbeddingResponse{Data: data}
}

func create768DimEmbedding() []float64 {
	emb := make([]float64, 768)
	for i := range emb {
		emb[i] = float64(i) * 0.001
	}
	return emb
}

func newTestClient(mock *mockEmbeddingsService) *OpenAI {
	return &OpenAI{embeddings: mock, model: "nomic-embed-text"}
}

func TestEmbed_Returns768Dimensions(t *testing.T) {
	mock := &mockEmbeddingsService{response: createMockResponse(create768DimEmbedding())}

	result, err := newTestClient(mock).Embed(context.Background(), "Hello\nWorld")
	require.NoError(t, err)

	assert.Len(t, result, 768)
	assert.Equal(t, []string{"Hello\nWorld"}, mock.lastInput)
	assert.Equal(t, openai.EmbeddingModel("nomic-embed-text"), mock.lastModel)
}

func TestEmbed_ConvertsFloat64ToFloat32(t *testing.T) {
	embedding := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
	mock := &mockEmbeddingsService{response: createMockResponse(embedding)}

	result, err := newTestClient(mock).Embed(context.Background(), "text")
	require.NoError(t, err)

	for i, v := range embedding {
		assert.Equal(t, float32(v), result[i], "index %d", i)
	}
}

func TestEmbed_WrapsErrorWithContext(t *testing.T) {
	originalErr := errors.New("api error")
	mock := &mockEmbeddingsService{err: originalErr}

	_, err := newTestClient(mock).Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding generation failed")
	assert.ErrorIs(t, err, originalErr)
}

func TestEmbed_NoDataReturned(t *testing.T) {
	mock := &mockEmbeddingsService{response: &openai.CreateEmbeddingResponse{}}

	_, err := newTestClient(mock).Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data returned")
}

func TestEmbed_RespectsContextCancellation(t *testing.T) {
	mock := &mockEmbeddingsService{response: createMockResponse(create768DimEmbedding())}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(mock).Embed(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mock.callCount)
}

func TestModelName_ReturnsConfiguredModel(t *testing.T) {
	client := NewOpenAI("ollama", "http://localhost:11434/v1", "nomic-embed-text")
	assert.Equal(t, "nomic-embed-text", client.ModelName())
}
