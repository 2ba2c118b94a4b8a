package llm

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"triage/internal/models"
)

const defaultOpenAIModel = "gpt-4o-mini"

// chatCompleter is the slice of the OpenAI client the backend needs.
// Keeping it an interface lets tests drop in a mock client.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIBackend runs prompts against an OpenAI-compatible
// chat-completion API. It also serves the "ollama" provider, which
// exposes the same wire protocol on a local endpoint.
type OpenAIBackend struct {
	client chatCompleter
	name   string
	model  string
	limit  int
}

// NewOpenAIBackend is the registry constructor for the "openai"
// provider. The API key comes from config with an environment
// fallback; its absence makes the model id unusable, not the process.
func NewOpenAIBackend(_ context.Context, cfg ModelConfig) (ChatBackend, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key not configured: %w", models.ErrUnsupportedModel)
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	log.Infof("OpenAI backend initialized with model %s", model)

	return &OpenAIBackend{
		client: openai.NewClient(apiKey),
		name:   "openai",
		model:  model,
		limit:  cfg.Concurrency,
	}, nil
}

func (b *OpenAIBackend) Name() string      { return b.name }
func (b *OpenAIBackend) ModelName() string { return b.model }

func (b *OpenAIBackend) BatchInvoke(ctx context.Context, prompts []string) []Result {
	return fanOut(ctx, prompts, b.limit, b.invoke)
}

func (b *OpenAIBackend) invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		// go-openai omits a zero temperature from the request body;
		// the smallest nonzero float is the documented workaround for
		// pinning deterministic decoding.
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion failed: %w: %w", b.name, err, models.ErrProviderCall)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from %s: %w", b.name, models.ErrProviderCall)
	}
	return resp.Choices[0].Message.Content, nil
}

var _ ChatBackend = (*OpenAIBackend)(nil)
