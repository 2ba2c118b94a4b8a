package taxonomy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/models"
)

func TestStore_ReplaceThenRead(t *testing.T) {
	s := NewStore(DefaultCategories(), DefaultResolutions())

	replacement := []models.TaxonomyEntry{
		{Name: "Outage", Description: "Service is down."},
		{Name: "Access", Description: "Login and permission issues."},
	}
	s.SetCategories(replacement)

	got := s.Categories()
	assert.Equal(t, replacement, got, "read must return exactly the new list, never a mix")

	// Resolutions are untouched by a category replace.
	assert.Equal(t, DefaultResolutions(), s.Resolutions())
}

func TestStore_ReadReturnsCopy(t *testing.T) {
	s := NewStore(DefaultCategories(), nil)

	got := s.Categories()
	got[0].Name = "mutated"

	require.NotEqual(t, "mutated", s.Categories()[0].Name, "mutating a read snapshot must not affect the store")
}

func TestStore_SetCopiesInput(t *testing.T) {
	in := []models.TaxonomyEntry{{Name: "A"}}
	s := NewStore(nil, nil)
	s.SetCategories(in)
	in[0].Name = "mutated"

	assert.Equal(t, "A", s.Categories()[0].Name)
}

func TestStore_ConcurrentReadersNeverSeeTornList(t *testing.T) {
	listA := []models.TaxonomyEntry{{Name: "A1"}, {Name: "A2"}}
	listB := []models.TaxonomyEntry{{Name: "B1"}, {Name: "B2"}, {Name: "B3"}}
	s := NewStore(listA, nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				s.SetCategories(listB)
			} else {
				s.SetCategories(listA)
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		got := s.Categories()
		// Every observed snapshot is entirely listA or entirely listB.
		switch len(got) {
		case 2:
			assert.Equal(t, listA, got)
		case 3:
			assert.Equal(t, listB, got)
		default:
			t.Fatalf("observed torn list of length %d", len(got))
		}
	}
	close(stop)
	wg.Wait()
}
