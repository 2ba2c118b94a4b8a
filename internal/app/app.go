// Package app wires configuration, stores, and services together.
package app

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"triage/internal/config"
	"triage/internal/llm"
	"triage/internal/prompt"
	"triage/internal/services"
	"triage/internal/store"
	"triage/internal/taxonomy"
)

type App struct {
	Config *config.Config

	Taxonomy        *taxonomy.Store
	CategoriesFile  *taxonomy.FileStore
	ResolutionsFile *taxonomy.FileStore

	Store    *store.Store
	Registry *llm.Registry
	Builder  *prompt.Builder

	CategorizationService *services.CategorizationService

	// JobClient enqueues async categorization jobs. It is lazy about
	// the Redis connection, so constructing it is always safe.
	JobClient *asynq.Client
}

func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a := &App{Config: cfg}

	if err := a.initTaxonomy(); err != nil {
		return nil, err
	}
	if err := a.initStore(); err != nil {
		return nil, err
	}
	if err := a.initPipeline(); err != nil {
		a.Store.Close()
		return nil, err
	}

	a.JobClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return a, nil
}

func (a *App) initTaxonomy() error {
	a.CategoriesFile = &taxonomy.FileStore{Path: a.Config.Taxonomy.CategoriesPath}
	a.ResolutionsFile = &taxonomy.FileStore{Path: a.Config.Taxonomy.ResolutionsPath}

	categories, err := a.CategoriesFile.LoadOrDefault(taxonomy.DefaultCategories())
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	resolutions, err := a.ResolutionsFile.LoadOrDefault(taxonomy.DefaultResolutions())
	if err != nil {
		return fmt.Errorf("failed to load resolutions: %w", err)
	}

	a.Taxonomy = taxonomy.NewStore(categories, resolutions)
	log.Infof("Taxonomy loaded: %d categories, %d resolution types", len(categories), len(resolutions))
	return nil
}

func (a *App) initStore() error {
	s, err := store.Open(a.Config.Store.Path)
	if err != nil {
		return err
	}
	a.Store = s
	return nil
}

func (a *App) initPipeline() error {
	tpl, err := config.LoadPromptTemplate(a.Config.Prompt.TemplatePath)
	if err != nil {
		return err
	}
	a.Builder = prompt.NewBuilder(
		prompt.WithTemplate(tpl),
		prompt.WithRequiredFields(a.Config.Prompt.RequiredFields),
		prompt.WithMaxDescriptionSentences(a.Config.Prompt.MaxDescriptionSentences),
	)

	a.Registry = llm.NewRegistry()
	a.Registry.RegisterProvider("openai", llm.NewOpenAIBackend)
	a.Registry.RegisterProvider("gemini", llm.NewGeminiBackend)
	a.Registry.RegisterProvider("ollama", llm.NewOllamaBackend)
	for id, mc := range a.Config.Models {
		a.Registry.RegisterModel(id, mc)
	}

	a.CategorizationService = services.NewCategorizationService(a.Registry, a.Builder, a.Store)
	return nil
}

// RequestTimeout is the per-request bound on the batch call.
func (a *App) RequestTimeout() time.Duration {
	return time.Duration(a.Config.Categorization.TimeoutSeconds) * time.Second
}

func (a *App) Close() error {
	var firstErr error
	if a.JobClient != nil {
		if err := a.JobClient.Close(); err != nil {
			firstErr = err
		}
	}
	if a.Registry != nil {
		if err := a.Registry.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
