package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if c.Taxonomy.CategoriesPath == "" || c.Taxonomy.ResolutionsPath == "" {
		return errors.New("taxonomy.categories_path and taxonomy.resolutions_path are required")
	}

	if len(c.Prompt.RequiredFields) == 0 {
		return errors.New("prompt.required_fields must name at least one field")
	}
	if c.Prompt.MaxDescriptionSentences < 0 {
		return errors.New("prompt.max_description_sentences must not be negative")
	}

	if c.Categorization.DefaultModel == "" {
		return errors.New("categorization.default_model is required")
	}
	if c.Categorization.TimeoutSeconds <= 0 {
		return errors.New("categorization.timeout_seconds must be positive")
	}

	if len(c.Models) == 0 {
		return errors.New("models must define at least one model id")
	}
	for id, mc := range c.Models {
		if mc.Provider == "" {
			return fmt.Errorf("models.%s.provider is required", id)
		}
		if mc.Concurrency < 0 {
			return fmt.Errorf("models.%s.concurrency must not be negative", id)
		}
	}
	if _, ok := c.Models[c.Categorization.DefaultModel]; !ok {
		return fmt.Errorf("categorization.default_model '%s' is not defined under models", c.Categorization.DefaultModel)
	}

	if c.Worker.Concurrency <= 0 {
		return errors.New("worker.concurrency must be a positive integer")
	}
	if len(c.Worker.Queues) == 0 {
		return errors.New("worker.queues must define at least one queue")
	}
	for name, priority := range c.Worker.Queues {
		if name == "" {
			return errors.New("worker.queues contains an empty queue name")
		}
		if priority <= 0 {
			return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
		}
	}

	return nil
}
