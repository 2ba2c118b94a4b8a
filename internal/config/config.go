package config

import (
	"fmt"

	"github.com/spf13/viper"

	"triage/internal/llm"
)

type Config struct {
	Server struct {
		Addr           string   `mapstructure:"addr"`
		Port           string   `mapstructure:"port"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"server"`

	Store struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`

	Taxonomy struct {
		CategoriesPath  string `mapstructure:"categories_path"`
		ResolutionsPath string `mapstructure:"resolutions_path"`
	} `mapstructure:"taxonomy"`

	Prompt struct {
		TemplatePath            string   `mapstructure:"template_path"`
		RequiredFields          []string `mapstructure:"required_fields"`
		MaxDescriptionSentences int      `mapstructure:"max_description_sentences"`
	} `mapstructure:"prompt"`

	Categorization struct {
		DefaultModel   string `mapstructure:"default_model"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"categorization"`

	// Models is the open, configuration-driven catalog: logical model
	// id to provider settings. New ids need a config entry, not code.
	Models map[string]llm.ModelConfig `mapstructure:"models"`

	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	} `mapstructure:"worker"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	// Credentials come from the environment without a prefix so the
	// standard provider variable names keep working.
	viper.BindEnv("models.openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("models.gemini.api_key", "GOOGLE_API_KEY")
	viper.BindEnv("models.ollama.base_url", "OLLAMA_HOST")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars carry a
		// dev setup.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.addr", "localhost")
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.allowed_origins", []string{
		"http://localhost:5173",
		"http://127.0.0.1:5173",
	})

	viper.SetDefault("store.path", "triage.db")
	viper.SetDefault("taxonomy.categories_path", "taxonomy/categories.json")
	viper.SetDefault("taxonomy.resolutions_path", "taxonomy/resolutions.json")

	viper.SetDefault("prompt.required_fields", []string{"Title", "Description"})
	viper.SetDefault("prompt.max_description_sentences", 0)

	viper.SetDefault("categorization.default_model", "openai")
	viper.SetDefault("categorization.timeout_seconds", 120)

	// The default catalog covers the three stock providers; config may
	// add ids (e.g. a second OpenAI id with a different model).
	viper.SetDefault("models.openai.provider", "openai")
	viper.SetDefault("models.openai.model", "gpt-4o-mini")
	viper.SetDefault("models.openai.concurrency", 8)
	viper.SetDefault("models.gemini.provider", "gemini")
	viper.SetDefault("models.gemini.model", "gemini-1.5-flash")
	viper.SetDefault("models.gemini.concurrency", 8)
	viper.SetDefault("models.ollama.provider", "ollama")
	viper.SetDefault("models.ollama.model", "llama3")
	viper.SetDefault("models.ollama.concurrency", 2)

	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("worker.concurrency", 4)
	viper.SetDefault("worker.queues", map[string]int{"default": 1})
}
