package services

import (
	"context"

	"github.com/risseraka/matchmakr/model"
)

// DatasetLoader supplies the raw profile records of named datasets.
type DatasetLoader interface {
	// Load returns the profiles of the named dataset in their stored order.
	Load(ctx context.Context, name string) ([]model.Profile, error)
	// List returns the names of the available datasets.
	List(ctx context.Context) ([]string, error)
}

// SavedSearchReader is the read side of a saved-search store, used during
// query expansion and suggestion cross-referencing.
type SavedSearchReader interface {
	GetAll(ctx context.Context) ([]model.SavedSearch, error)
	Get(ctx context.Context, key string) (model.SavedSearch, error)
}

// SavedSearchStore persists named queries. Writes only happen on an explicit user action.
type SavedSearchStore interface {
	SavedSearchReader
	// Append merges patch into the query stored under key, creating it if needed.
	Append(ctx context.Context, key string, patch model.Query) error
	// Set replaces the saved search stored under search.Key.
	Set(ctx context.Context, search model.SavedSearch) error
	Close() error
}

// JobManager exposes the status of background jobs.
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(dataset string) []*model.Job
}
