package savedsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	internalErrors "github.com/risseraka/matchmakr/internal/errors"
	"github.com/risseraka/matchmakr/internal/logging"
	"github.com/risseraka/matchmakr/model"
	"github.com/risseraka/matchmakr/services"
)

const searchKeyPrefix = "search:"

var _ services.SavedSearchStore = (*BadgerStore)(nil)

// BadgerStore keeps saved searches in a badger database, one key per search.
type BadgerStore struct {
	db     *badger.DB
	logger *logging.Logger
}

// OpenBadgerStore opens the database in dir, creating the directory if needed.
// An empty dir with inMemory set opens a throwaway in-memory database.
func OpenBadgerStore(dir string, inMemory bool, logger *logging.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, err
			}
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = logger.Badger()
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open saved search database: %w", err)
	}
	return &BadgerStore{db: db, logger: logger.With("store", "badger")}, nil
}

func makeSearchKey(key string) []byte {
	return []byte(searchKeyPrefix + key)
}

// GetAll returns every saved search ordered by key. Unreadable values are
// logged and skipped.
func (s *BadgerStore) GetAll(ctx context.Context) ([]model.SavedSearch, error) {
	var out []model.SavedSearch
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(searchKeyPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			key := string(item.Key()[len(searchKeyPrefix):])
			err := item.Value(func(val []byte) error {
				search, err := decodeRecord(key, val)
				if err != nil {
					s.logger.Warn("Skipping unreadable saved search",
						"key", key,
						"error", internalErrors.NewCorruptStateError(searchKeyPrefix+key, err))
					return nil
				}
				out = append(out, search)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get returns the saved search stored under key.
func (s *BadgerStore) Get(ctx context.Context, key string) (model.SavedSearch, error) {
	var search model.SavedSearch
	err := s.db.View(func(tx *badger.Txn) error {
		var err error
		search, err = s.get(tx, key)
		return err
	})
	return search, err
}

func (s *BadgerStore) get(tx *badger.Txn, key string) (model.SavedSearch, error) {
	item, err := tx.Get(makeSearchKey(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return model.SavedSearch{}, internalErrors.NewSavedSearchNotFoundError(key)
		}
		return model.SavedSearch{}, err
	}

	var search model.SavedSearch
	err = item.Value(func(val []byte) error {
		var decodeErr error
		search, decodeErr = decodeRecord(key, val)
		return decodeErr
	})
	if err != nil {
		return model.SavedSearch{}, internalErrors.NewCorruptStateError(searchKeyPrefix+key, err)
	}
	return search, nil
}

// Append merges patch into the query stored under key, creating it if needed.
func (s *BadgerStore) Append(ctx context.Context, key string, patch model.Query) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.db.Update(func(tx *badger.Txn) error {
		existing, err := s.get(tx, key)
		found := err == nil
		if err != nil && !errors.Is(err, internalErrors.ErrSavedSearchNotFound) {
			if !errors.Is(err, internalErrors.ErrCorruptState) {
				return err
			}
			s.logger.Warn("Replacing unreadable saved search", "key", key, "error", err)
		}
		return s.put(tx, appended(existing, found, key, patch))
	})
}

// Set replaces the saved search stored under search.Key.
func (s *BadgerStore) Set(ctx context.Context, search model.SavedSearch) error {
	if err := validateKey(search.Key); err != nil {
		return err
	}
	return s.db.Update(func(tx *badger.Txn) error {
		return s.put(tx, search)
	})
}

func (s *BadgerStore) put(tx *badger.Txn, search model.SavedSearch) error {
	value, err := json.Marshal(toRecord(search))
	if err != nil {
		return fmt.Errorf("failed to encode saved search %q: %w", search.Key, err)
	}
	return tx.Set(makeSearchKey(search.Key), value)
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
