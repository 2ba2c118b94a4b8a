package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"triage/internal/models"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiBackend runs prompts against the Google Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
	limit  int
}

// NewGeminiBackend is the registry constructor for the "gemini"
// provider.
func NewGeminiBackend(ctx context.Context, cfg ModelConfig) (ChatBackend, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("google API key not configured: %w", models.ErrUnsupportedModel)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	log.Infof("Gemini backend initialized with model %s", model)

	return &GeminiBackend{
		client: client,
		model:  model,
		limit:  cfg.Concurrency,
	}, nil
}

func (b *GeminiBackend) Name() string      { return "gemini" }
func (b *GeminiBackend) ModelName() string { return b.model }

func (b *GeminiBackend) BatchInvoke(ctx context.Context, prompts []string) []Result {
	return fanOut(ctx, prompts, b.limit, b.invoke)
}

func (b *GeminiBackend) invoke(ctx context.Context, prompt string) (string, error) {
	gm := b.client.GenerativeModel(b.model)
	gm.SetTemperature(0)

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini content generation failed: %w: %w", err, models.ErrProviderCall)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned from Gemini: %w", models.ErrProviderCall)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini candidate contained no text parts: %w", models.ErrProviderCall)
	}
	return sb.String(), nil
}

// Close releases the underlying gRPC connection.
func (b *GeminiBackend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

var _ ChatBackend = (*GeminiBackend)(nil)
