package savedsearch

import (
	"context"
	"sync"

	"github.com/risseraka/matchmakr/model"
	"github.com/risseraka/matchmakr/services"
)

var _ services.SavedSearchStore = (*MemoryStore)(nil)

// MemoryStore keeps saved searches in memory only.
type MemoryStore struct {
	mu       sync.RWMutex
	searches entries
}

// NewMemoryStore creates a store holding initial.
func NewMemoryStore(initial ...model.SavedSearch) *MemoryStore {
	s := &MemoryStore{searches: make(entries, len(initial))}
	for _, search := range initial {
		s.searches[search.Key] = search
	}
	return s
}

// GetAll returns every saved search ordered by key.
func (s *MemoryStore) GetAll(ctx context.Context) ([]model.SavedSearch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searches.list(), nil
}

// Get returns the saved search stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) (model.SavedSearch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searches.get(key)
}

// Append merges patch into the query stored under key, creating it if needed.
func (s *MemoryStore) Append(ctx context.Context, key string, patch model.Query) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.searches[key]
	s.searches[key] = appended(existing, found, key, patch)
	return nil
}

// Set replaces the saved search stored under search.Key.
func (s *MemoryStore) Set(ctx context.Context, search model.SavedSearch) error {
	if err := validateKey(search.Key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	search.Query = search.Query.Clone()
	s.searches[search.Key] = search
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
