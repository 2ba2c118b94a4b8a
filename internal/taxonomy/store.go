// Package taxonomy holds the caller-defined category and resolution
// label sets shared by every categorization request.
package taxonomy

import (
	"sync"

	"triage/internal/models"
)

// Store is the process-wide taxonomy. Reads return a copy so callers
// can never observe a half-replaced list; writers replace wholesale
// (last writer wins). Duplicate names are permitted; they become
// ambiguous labels for the model, which is a documented limitation of
// the matching scheme, not something the store corrects.
type Store struct {
	mu          sync.RWMutex
	categories  []models.TaxonomyEntry
	resolutions []models.TaxonomyEntry
}

// NewStore creates a store seeded with the given lists.
func NewStore(categories, resolutions []models.TaxonomyEntry) *Store {
	return &Store{
		categories:  cloneEntries(categories),
		resolutions: cloneEntries(resolutions),
	}
}

func (s *Store) Categories() []models.TaxonomyEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.categories)
}

func (s *Store) Resolutions() []models.TaxonomyEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.resolutions)
}

func (s *Store) SetCategories(entries []models.TaxonomyEntry) {
	entries = cloneEntries(entries)
	s.mu.Lock()
	s.categories = entries
	s.mu.Unlock()
}

func (s *Store) SetResolutions(entries []models.TaxonomyEntry) {
	entries = cloneEntries(entries)
	s.mu.Lock()
	s.resolutions = entries
	s.mu.Unlock()
}

func cloneEntries(entries []models.TaxonomyEntry) []models.TaxonomyEntry {
	out := make([]models.TaxonomyEntry, len(entries))
	copy(out, entries)
	return out
}
