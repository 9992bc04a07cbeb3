package engine

import (
	"context"
	"time"

	"github.com/risseraka/matchmakr/internal/cache"
	"github.com/risseraka/matchmakr/internal/metrics"
	"github.com/risseraka/matchmakr/internal/search"
	"github.com/risseraka/matchmakr/internal/skills"
	"github.com/risseraka/matchmakr/internal/suggest"
	"github.com/risseraka/matchmakr/model"
)

// Query evaluates raw query parameters against a dataset.
// Results are cached per dataset generation and saved-search generation. A
// cached result is returned as a copy with its own QueryID; its Results slice
// is shared with other callers and must be treated as read-only.
func (e *Engine) Query(ctx context.Context, dataset string, params search.Params) (*search.Result, error) {
	ds, err := e.Dataset(ctx, dataset)
	if err != nil {
		return nil, err
	}
	query := search.ParseParams(params)

	// Read before evaluating: a save that lands mid-query moves later
	// lookups to a new key instead of finding this result.
	savedGen := e.savedGeneration.current()
	key, keyErr := cache.Key(ds.Name, query, ds.Generation, savedGen)
	if keyErr == nil && e.results.Enabled() {
		if cached, ok := e.results.Get(key); ok {
			e.metrics.RecordCache(true)
			return cached.Reissue(), nil
		}
		e.metrics.RecordCache(false)
	}

	start := time.Now()
	result, err := e.run(ctx, func(ctx context.Context) (*search.Result, error) {
		return e.searcher.Run(ctx, ds, query)
	})
	if err != nil {
		e.metrics.RecordQuery(metrics.KindQuery, err, time.Since(start), 0)
		return nil, err
	}
	e.metrics.RecordQuery(metrics.KindQuery, nil, time.Since(start), result.Len())

	if keyErr == nil {
		e.results.Set(key, result, int64(result.Len())+1)
	}
	return result, nil
}

// run applies the query timeout to fn.
func (e *Engine) run(ctx context.Context, fn func(context.Context) (*search.Result, error)) (*search.Result, error) {
	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// Suggest returns field and saved-search suggestions for text.
func (e *Engine) Suggest(ctx context.Context, dataset, text string) (*suggest.Result, error) {
	ds, err := e.Dataset(ctx, dataset)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := e.suggester.Suggest(ctx, ds, text)
	count := 0
	if result != nil {
		count = len(result.Exact) + len(result.Partial) + len(result.Search.Including)
	}
	e.metrics.RecordQuery(metrics.KindSuggest, err, time.Since(start), count)
	return result, err
}

// RelatedSkills returns the skills co-occurring with name.
func (e *Engine) RelatedSkills(ctx context.Context, dataset, name string) ([]model.SkillCount, error) {
	ds, err := e.Dataset(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return ds.Skills.RelatedSkills(name), nil
}

// TopSkills returns the skills whose most frequent companion is name.
func (e *Engine) TopSkills(ctx context.Context, dataset, name string) ([]skills.TopSkill, error) {
	ds, err := e.Dataset(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return ds.Skills.TopSkills(name), nil
}

// Relations returns every relation of a dataset, largest network first.
func (e *Engine) Relations(ctx context.Context, dataset string) ([]model.Relation, error) {
	ds, err := e.Dataset(ctx, dataset)
	if err != nil {
		return nil, err
	}
	if ds.Relations == nil {
		return []model.Relation{}, nil
	}
	return ds.Relations.List, nil
}
