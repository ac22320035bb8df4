package catalog

import (
	"sync"

	"github.com/alanyoungcy/nftbidbot/internal/domain"
)

// Store holds the shared collection dataset. Writers replace the whole
// value; readers get a copy, so a snapshot taken at the start of a job run
// stays stable while a refresh commits behind it.
type Store struct {
	mu          sync.RWMutex
	collections []domain.Collection
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy of the current dataset.
func (s *Store) Snapshot() []domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Collection, len(s.collections))
	copy(out, s.collections)
	return out
}

// Replace commits a new dataset.
func (s *Store) Replace(collections []domain.Collection) {
	s.mu.Lock()
	s.collections = collections
	s.mu.Unlock()
}

// Len returns the current dataset size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections)
}
