package taxonomy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"triage/internal/models"
)

// DecodeError distinguishes a corrupt taxonomy document from a plain
// I/O failure, so callers can decide whether to fall back to defaults.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("taxonomy file %s is not valid JSON: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FileStore persists one taxonomy list as a JSON document on disk.
type FileStore struct {
	Path string
}

// Load reads and decodes the list. A missing file is reported through
// os.IsNotExist on the wrapped error; a present-but-corrupt file is a
// *DecodeError.
func (f *FileStore) Load() ([]models.TaxonomyEntry, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	var entries []models.TaxonomyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &DecodeError{Path: f.Path, Err: err}
	}
	return entries, nil
}

// Save writes the list atomically: encode to a temp file in the same
// directory, then rename over the target.
func (f *FileStore) Save(entries []models.TaxonomyEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode taxonomy: %w", err)
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create taxonomy directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp taxonomy file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp taxonomy file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp taxonomy file: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace taxonomy file: %w", err)
	}
	return nil
}

// LoadOrDefault returns the persisted list, or defaults when the file
// does not exist yet. Corrupt files are not silently replaced.
func (f *FileStore) LoadOrDefault(defaults []models.TaxonomyEntry) ([]models.TaxonomyEntry, error) {
	entries, err := f.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Infof("Taxonomy file %s not found, using defaults", f.Path)
			return defaults, nil
		}
		return nil, err
	}
	return entries, nil
}
