package engine

import (
	"context"
	"time"

	"github.com/risseraka/matchmakr/internal/errors"
	"github.com/risseraka/matchmakr/internal/metrics"
	"github.com/risseraka/matchmakr/internal/savedsearch"
	"github.com/risseraka/matchmakr/internal/search"
	"github.com/risseraka/matchmakr/model"
)

// SavedSearchResult is a saved search replayed against a dataset.
type SavedSearchResult struct {
	Title       string       `json:"title"`
	Query       model.Query  `json:"query"`
	Description string       `json:"description,omitempty"`
	Count       int          `json:"count"`
	Results     []search.Hit `json:"results"`
}

// SavedSearches returns every saved search, sorted by key.
func (e *Engine) SavedSearches(ctx context.Context) ([]model.SavedSearch, error) {
	return e.saved.GetAll(ctx)
}

// SavedSearch evaluates the search saved under key.
func (e *Engine) SavedSearch(ctx context.Context, dataset, key string) (*SavedSearchResult, error) {
	saved, err := e.saved.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	ds, err := e.Dataset(ctx, dataset)
	if err != nil {
		return nil, err
	}

	// Legacy entries may hold raw values.
	query := search.ParseParams(search.QueryParams(saved.Query))

	start := time.Now()
	result, err := e.run(ctx, func(ctx context.Context) (*search.Result, error) {
		return e.searcher.Run(ctx, ds, query)
	})
	if err != nil {
		e.metrics.RecordQuery(metrics.KindSaved, err, time.Since(start), 0)
		return nil, err
	}
	e.metrics.RecordQuery(metrics.KindSaved, nil, time.Since(start), result.Len())

	return &SavedSearchResult{
		Title:       saved.Key,
		Query:       saved.Query,
		Description: saved.Description,
		Count:       result.Len(),
		Results:     result.Results,
	}, nil
}

// Save stores value under key in table. value is {"query": {...}, "description": "..."}.
// The query is normalized before it is written.
func (e *Engine) Save(ctx context.Context, table, key, value string) (model.SavedSearch, error) {
	saved, err := savedsearch.ParseSave(table, key, value)
	if err != nil {
		return model.SavedSearch{}, err
	}
	saved.Query = search.ParseParams(search.QueryParams(saved.Query))
	if len(saved.Query) == 0 {
		return model.SavedSearch{}, errors.NewValidationError("value", "query has no recognized fields")
	}

	if err := e.saved.Set(ctx, saved); err != nil {
		return model.SavedSearch{}, err
	}
	e.savedGeneration.next()
	e.logger.Info("Saved search stored", "key", saved.Key, "fields", len(saved.Query))
	return saved, nil
}

// AppendSearch merges params into the search saved under key, creating it if needed.
func (e *Engine) AppendSearch(ctx context.Context, key string, params search.Params) error {
	patch := search.ParseParams(params)
	if len(patch) == 0 {
		return errors.NewValidationError("query", "query has no recognized fields")
	}
	if err := e.saved.Append(ctx, key, patch); err != nil {
		return err
	}
	e.savedGeneration.next()
	return nil
}
