package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/models"
)

// --- Mock OpenAI Client ---
type mockOpenAIClient struct {
	mu        sync.Mutex
	requests  []openai.ChatCompletionRequest
	respond   func(req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	mockError error
}

func (m *mockOpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.mockError != nil {
		return openai.ChatCompletionResponse{}, m.mockError
	}
	return m.respond(req)
}

func contentResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestOpenAIBackend_BatchInvoke(t *testing.T) {
	mockClient := &mockOpenAIClient{
		respond: func(req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return contentResponse("reply to: " + req.Messages[0].Content), nil
		},
	}
	backend := &OpenAIBackend{client: mockClient, name: "openai", model: "gpt-test", limit: 2}

	results := backend.BatchInvoke(context.Background(), []string{"alpha", "beta"})
	require.Len(t, results, 2)
	assert.Equal(t, "reply to: alpha", results[0].Content)
	assert.Equal(t, "reply to: beta", results[1].Content)

	// Decoding must be pinned; a literal zero would be dropped from the
	// request body by the client's omitempty handling.
	for _, req := range mockClient.requests {
		assert.Greater(t, req.Temperature, float32(0))
		assert.Less(t, req.Temperature, float32(1e-30))
		assert.Equal(t, "gpt-test", req.Model)
	}
}

func TestOpenAIBackend_APIError(t *testing.T) {
	mockErr := errors.New("simulated API error 429 Too Many Requests")
	backend := &OpenAIBackend{
		client: &mockOpenAIClient{mockError: mockErr},
		name:   "openai",
		model:  "gpt-test",
	}

	results := backend.BatchInvoke(context.Background(), []string{"alpha"})
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.ErrorIs(t, results[0].Err, mockErr)
	assert.ErrorIs(t, results[0].Err, models.ErrProviderCall)
	assert.Contains(t, results[0].Err.Error(), "openai chat completion failed")
}

func TestOpenAIBackend_EmptyChoices(t *testing.T) {
	backend := &OpenAIBackend{
		client: &mockOpenAIClient{
			respond: func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return openai.ChatCompletionResponse{}, nil
			},
		},
		name:  "openai",
		model: "gpt-test",
	}

	results := backend.BatchInvoke(context.Background(), []string{"alpha"})
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.ErrorIs(t, results[0].Err, models.ErrProviderCall)
	assert.Contains(t, results[0].Err.Error(), "no choices returned")
}

func TestNewOpenAIBackend_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewOpenAIBackend(context.Background(), ModelConfig{Provider: "openai"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnsupportedModel)
}

func TestNewOllamaBackend_NoCredentialRequired(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")

	backend, err := NewOllamaBackend(context.Background(), ModelConfig{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", backend.Name())
	assert.Equal(t, defaultOllamaModel, backend.ModelName())
}
