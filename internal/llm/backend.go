// Package llm maps logical model identifiers to chat-completion
// backends with a uniform batch contract.
package llm

import (
	"context"
	"fmt"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"

	"triage/internal/models"
)

// Result is one model output, or the item-level failure that produced
// no output. Exactly one Result exists per prompt.
type Result struct {
	Content string
	Err     error
}

// ChatBackend is the capability every provider adapter exposes.
// BatchInvoke returns len(prompts) results, in prompt order, regardless
// of how the backend schedules the individual calls.
type ChatBackend interface {
	BatchInvoke(ctx context.Context, prompts []string) []Result
	Name() string
	ModelName() string
}

// ModelConfig describes one logical model id from configuration.
type ModelConfig struct {
	Provider    string `mapstructure:"provider"`
	Model       string `mapstructure:"model"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Concurrency int    `mapstructure:"concurrency"`
}

// Constructor builds a backend from its model configuration. It runs
// when the model id is first requested, so a missing credential fails
// that request rather than process start.
type Constructor func(ctx context.Context, cfg ModelConfig) (ChatBackend, error)

// Registry resolves logical model ids. Providers register a
// constructor, configuration registers model ids; the orchestrator
// never branches on provider names. Constructed backends are cached
// per model id, so clients holding connections (Gemini's gRPC client)
// are built once and reused across requests instead of leaking one
// per request.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	catalog      map[string]ModelConfig
	backends     map[string]ChatBackend
}

func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		catalog:      make(map[string]ModelConfig),
		backends:     make(map[string]ChatBackend),
	}
}

// RegisterProvider makes a provider constructor available under name.
func (r *Registry) RegisterProvider(name string, ctor Constructor) {
	r.mu.Lock()
	r.constructors[name] = ctor
	r.mu.Unlock()
}

// RegisterModel binds a logical model id to its configuration. A
// cached backend for the id is discarded so the next Resolve sees the
// new settings.
func (r *Registry) RegisterModel(id string, cfg ModelConfig) {
	r.mu.Lock()
	r.catalog[id] = cfg
	r.evictLocked(id)
	r.mu.Unlock()
}

// Resolve returns the backend for a logical model id, constructing it
// on first use. Unknown ids and misconfigured providers both surface
// as models.ErrUnsupportedModel. Construction failures (e.g. a missing
// credential) are not cached, so fixing the environment fixes the next
// request.
func (r *Registry) Resolve(ctx context.Context, id string) (ChatBackend, error) {
	r.mu.RLock()
	backend, cached := r.backends[id]
	r.mu.RUnlock()
	if cached {
		return backend, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if backend, cached := r.backends[id]; cached {
		return backend, nil
	}

	cfg, ok := r.catalog[id]
	if !ok {
		return nil, fmt.Errorf("model id '%s': %w", id, models.ErrUnsupportedModel)
	}
	ctor := r.constructors[cfg.Provider]
	if ctor == nil {
		return nil, fmt.Errorf("model id '%s' references unknown provider '%s': %w", id, cfg.Provider, models.ErrUnsupportedModel)
	}

	backend, err := ctor(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("model id '%s': %w", id, err)
	}
	r.backends[id] = backend
	return backend, nil
}

// Close releases every cached backend that holds a connection.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for id, backend := range r.backends {
		if closer, ok := backend.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("failed to close backend for model id '%s': %w", id, err)
			}
		}
		delete(r.backends, id)
	}
	return firstErr
}

func (r *Registry) evictLocked(id string) {
	backend, ok := r.backends[id]
	if !ok {
		return
	}
	if closer, ok := backend.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Warnf("Failed to close replaced backend for model id '%s': %v", id, err)
		}
	}
	delete(r.backends, id)
}

// ModelIDs lists the registered logical ids, for diagnostics.
func (r *Registry) ModelIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.catalog))
	for id := range r.catalog {
		ids = append(ids, id)
	}
	return ids
}
