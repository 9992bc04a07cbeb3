package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/risseraka/matchmakr/internal/indexing"
	"github.com/risseraka/matchmakr/store"
)

// DatasetInfo describes a dataset known to the loader or published in memory.
type DatasetInfo struct {
	Name       string    `json:"name"`
	Loaded     bool      `json:"loaded"`
	Generation uint64    `json:"generation,omitempty"`
	Profiles   int       `json:"profiles,omitempty"`
	LoadedAt   time.Time `json:"loaded_at,omitempty"`
}

// progressFunc reports load progress as (done, total, message).
type progressFunc func(current, total int, message string)

const loadSteps = 3

// Dataset returns the published bundle of name, loading it first if needed.
func (e *Engine) Dataset(ctx context.Context, name string) (*indexing.Dataset, error) {
	if ds := e.published(name); ds != nil {
		return ds, nil
	}
	return e.load(ctx, name, nil)
}

// Reload rebuilds name from its source and publishes the new bundle.
// Queries running against the previous bundle finish on it.
func (e *Engine) Reload(ctx context.Context, name string) (*indexing.Dataset, error) {
	return e.load(ctx, name, nil)
}

// Preload loads the given datasets in parallel, stopping at the first failure.
func (e *Engine) Preload(ctx context.Context, names []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.preloadWorkers)
	for _, name := range names {
		name := name
		g.Go(func() error {
			_, err := e.Dataset(gctx, name)
			return err
		})
	}
	return g.Wait()
}

// load deduplicates concurrent loads of the same dataset. The shared load
// runs detached from the first caller's cancellation so that one abandoned
// request cannot fail the others waiting on it.
func (e *Engine) load(ctx context.Context, name string, progress progressFunc) (*indexing.Dataset, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(int, int, string) {}
	}

	ch := e.loads.DoChan(name, func() (any, error) {
		return e.build(context.WithoutCancel(ctx), name, progress)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*indexing.Dataset), nil
	}
}

func (e *Engine) build(ctx context.Context, name string, progress progressFunc) (*indexing.Dataset, error) {
	start := time.Now()
	progress(0, loadSteps, "loading profiles")

	raw, err := e.loader.Load(ctx, name)
	if err != nil {
		e.metrics.RecordLoad(name, err, 0, 0)
		return nil, err
	}
	progress(1, loadSteps, fmt.Sprintf("preparing %d profiles", len(raw)))

	ds, err := e.indexer.Prepare(name, raw)
	if err != nil {
		e.metrics.RecordLoad(name, err, 0, 0)
		return nil, err
	}
	ds.Generation = e.generation.next()
	progress(2, loadSteps, "publishing")

	e.publish(ds)
	e.results.Clear()
	e.metrics.RecordLoad(name, nil, len(ds.Profiles), ds.Relations.Len())
	progress(loadSteps, loadSteps, "published")

	e.logger.Info("Dataset published",
		"dataset", name,
		"generation", ds.Generation,
		"profiles", len(ds.Profiles),
		"took", time.Since(start))
	return ds, nil
}

// ListDatasets merges the datasets the loader knows with the published ones.
func (e *Engine) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	names, err := e.loader.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		seen[name] = struct{}{}
	}
	e.mu.RLock()
	for name := range e.datasets {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
			seen[name] = struct{}{}
		}
	}
	e.mu.RUnlock()
	sort.Strings(names)

	infos := make([]DatasetInfo, 0, len(names))
	for _, name := range names {
		info := DatasetInfo{Name: name}
		if ds := e.published(name); ds != nil {
			info.Loaded = true
			info.Generation = ds.Generation
			info.Profiles = len(ds.Profiles)
			info.LoadedAt = ds.LoadedAt
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Summary returns the map sizes of a dataset.
func (e *Engine) Summary(ctx context.Context, name string) (indexing.Summary, error) {
	ds, err := e.Dataset(ctx, name)
	if err != nil {
		return indexing.Summary{}, err
	}
	return ds.Summary(), nil
}
