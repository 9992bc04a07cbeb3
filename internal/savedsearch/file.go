package savedsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	internalErrors "github.com/risseraka/matchmakr/internal/errors"
	"github.com/risseraka/matchmakr/internal/logging"
	"github.com/risseraka/matchmakr/internal/persistence"
	"github.com/risseraka/matchmakr/model"
	"github.com/risseraka/matchmakr/services"
)

var _ services.SavedSearchStore = (*FileStore)(nil)

// FileStore keeps saved searches in a JSON object keyed by search key.
// A missing or corrupt file yields an empty store; the next write replaces it.
type FileStore struct {
	mu       sync.RWMutex
	searches entries
	path     string
	logger   *logging.Logger
}

// NewFileStore opens the store at path. It never fails on unreadable content.
func NewFileStore(path string, logger *logging.Logger) *FileStore {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &FileStore{
		searches: make(entries),
		path:     path,
		logger:   logger.With("store", "file", "path", path),
	}

	if err := s.loadData(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Saved searches are unreadable, starting empty",
				"error", internalErrors.NewCorruptStateError(path, err))
		}
		s.searches = make(entries)
	}
	return s
}

// GetAll returns every saved search ordered by key.
func (s *FileStore) GetAll(ctx context.Context) ([]model.SavedSearch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searches.list(), nil
}

// Get returns the saved search stored under key.
func (s *FileStore) Get(ctx context.Context, key string) (model.SavedSearch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searches.get(key)
}

// Append merges patch into the query stored under key, creating it if needed.
func (s *FileStore) Append(ctx context.Context, key string, patch model.Query) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.searches[key]
	s.searches[key] = appended(existing, found, key, patch)

	if err := s.saveData(); err != nil {
		// Rollback the in-memory change
		if found {
			s.searches[key] = existing
		} else {
			delete(s.searches, key)
		}
		return fmt.Errorf("failed to persist saved search %q: %w", key, err)
	}
	return nil
}

// Set replaces the saved search stored under search.Key.
func (s *FileStore) Set(ctx context.Context, search model.SavedSearch) error {
	if err := validateKey(search.Key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.searches[search.Key]
	search.Query = search.Query.Clone()
	s.searches[search.Key] = search

	if err := s.saveData(); err != nil {
		if found {
			s.searches[search.Key] = existing
		} else {
			delete(s.searches, search.Key)
		}
		return fmt.Errorf("failed to persist saved search %q: %w", search.Key, err)
	}
	return nil
}

// Close is a no-op; every write is already on disk.
func (s *FileStore) Close() error {
	return nil
}

// loadData reads the file. Entries that fail to decode are skipped and logged.
func (s *FileStore) loadData() error {
	var raw map[string]json.RawMessage
	if err := persistence.LoadJSON(s.path, &raw); err != nil {
		return err
	}

	loaded := make(entries, len(raw))
	for key, value := range raw {
		search, err := decodeRecord(key, value)
		if err != nil {
			s.logger.Warn("Skipping unreadable saved search",
				"key", key,
				"error", internalErrors.NewCorruptStateError(s.path, err))
			continue
		}
		loaded[key] = search
	}
	s.searches = loaded
	return nil
}

// saveData writes every entry in the plain form.
func (s *FileStore) saveData() error {
	out := make(map[string]record, len(s.searches))
	for key, search := range s.searches {
		out[key] = toRecord(search)
	}
	return persistence.SaveJSON(s.path, out)
}
