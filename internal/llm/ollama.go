package llm

import (
	"context"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

const (
	defaultOllamaModel = "llama3"
	defaultOllamaHost  = "http://localhost:11434"
)

// NewOllamaBackend is the registry constructor for the "ollama"
// provider. Ollama serves an OpenAI-compatible endpoint under /v1, so
// the backend reuses the OpenAI client with a rewritten base URL. No
// credential is required for a local host.
func NewOllamaBackend(_ context.Context, cfg ModelConfig) (ChatBackend, error) {
	host := cfg.BaseURL
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = defaultOllamaHost
	}

	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}

	clientCfg := openai.DefaultConfig("ollama")
	clientCfg.BaseURL = strings.TrimSuffix(host, "/") + "/v1"
	log.Infof("Ollama backend initialized with model %s at %s", model, clientCfg.BaseURL)

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(clientCfg),
		name:   "ollama",
		model:  model,
		limit:  cfg.Concurrency,
	}, nil
}
