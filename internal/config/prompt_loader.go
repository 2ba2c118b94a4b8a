package config

import (
	"fmt"
	"os"
)

// LoadPromptTemplate reads a prompt template override from disk. An
// empty path means the built-in template is used.
func LoadPromptTemplate(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template '%s': %w", path, err)
	}
	return string(data), nil
}
