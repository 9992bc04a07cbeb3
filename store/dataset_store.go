// Package store supplies the raw profile records of named datasets.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	internalErrors "github.com/risseraka/matchmakr/internal/errors"
	"github.com/risseraka/matchmakr/internal/persistence"
	"github.com/risseraka/matchmakr/model"
	"github.com/risseraka/matchmakr/services"
)

const datasetExt = ".json"

var (
	_ services.DatasetLoader = (*FileLoader)(nil)
	_ services.DatasetLoader = (*MemoryLoader)(nil)
)

// ValidateName rejects dataset names that could escape the data directory.
func ValidateName(name string) error {
	if name == "" {
		return internalErrors.NewValidationError("dataset", "dataset name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return internalErrors.NewValidationError("dataset", fmt.Sprintf("invalid dataset name '%s'", name))
	}
	return nil
}

// FileLoader reads datasets stored as <dir>/<name>.json, each a JSON array of profiles.
type FileLoader struct {
	dir string
}

// NewFileLoader creates a loader over dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{dir: dir}
}

// Path returns the file backing the named dataset.
func (l *FileLoader) Path(name string) string {
	return filepath.Join(l.dir, name+datasetExt)
}

// Load decodes the named dataset file.
func (l *FileLoader) Load(ctx context.Context, name string) ([]model.Profile, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var profiles []model.Profile
	if err := persistence.LoadJSON(l.Path(name), &profiles); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, internalErrors.NewDatasetNotFoundError(name)
		}
		return nil, fmt.Errorf("failed to load dataset '%s': %w", name, err)
	}
	return profiles, nil
}

// List returns the dataset names found in the directory, sorted.
// A missing directory holds no datasets.
func (l *FileLoader) List(ctx context.Context) ([]string, error) {
	items, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read data directory %s: %w", l.dir, err)
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		if item.IsDir() || filepath.Ext(item.Name()) != datasetExt {
			continue
		}
		names = append(names, strings.TrimSuffix(item.Name(), datasetExt))
	}
	sort.Strings(names)
	return names, nil
}

// MemoryLoader serves datasets held in memory. Load returns copies, so callers
// may keep the slices they passed to Put.
type MemoryLoader struct {
	mu       sync.RWMutex
	datasets map[string][]model.Profile
}

// NewMemoryLoader creates an empty MemoryLoader.
func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{datasets: make(map[string][]model.Profile)}
}

// Put stores (or replaces) the named dataset.
func (l *MemoryLoader) Put(name string, profiles []model.Profile) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.datasets[name] = append([]model.Profile(nil), profiles...)
}

func (l *MemoryLoader) Load(ctx context.Context, name string) ([]model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	profiles, ok := l.datasets[name]
	if !ok {
		return nil, internalErrors.NewDatasetNotFoundError(name)
	}
	return append([]model.Profile(nil), profiles...), nil
}

func (l *MemoryLoader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.datasets))
	for name := range l.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
