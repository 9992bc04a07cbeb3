// Package engine ties the dataset registry, query evaluation, suggestions,
// saved searches and background reloads together behind one API.
package engine

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/risseraka/matchmakr/internal/cache"
	"github.com/risseraka/matchmakr/internal/indexing"
	"github.com/risseraka/matchmakr/internal/jobs"
	"github.com/risseraka/matchmakr/internal/logging"
	"github.com/risseraka/matchmakr/internal/metrics"
	"github.com/risseraka/matchmakr/internal/savedsearch"
	"github.com/risseraka/matchmakr/internal/search"
	"github.com/risseraka/matchmakr/internal/suggest"
	"github.com/risseraka/matchmakr/services"
)

const (
	defaultJobWorkers     = 2
	defaultPreloadWorkers = 4
)

// Options configures an Engine. Only Loader is required.
type Options struct {
	Loader        services.DatasetLoader
	SavedSearches services.SavedSearchStore
	Metrics       *metrics.Registry
	Logger        *logging.Logger
	Cache         cache.Config

	// QueryTimeout bounds a single query evaluation. Zero disables it.
	QueryTimeout   time.Duration
	SearchStrategy string
	SearchExclude  []string
	Now            func() time.Time

	JobWorkers     int
	PreloadWorkers int
	SuggestWorkers int
}

// Engine manages the published datasets of a process.
type Engine struct {
	mu       sync.RWMutex
	datasets map[string]*slot

	loads      singleflight.Group
	generation generationCounter
	// savedGeneration advances after every saved-search write. Cached
	// results are keyed by it because savedSearch expansion reads the store.
	savedGeneration generationCounter

	loader         services.DatasetLoader
	saved          services.SavedSearchStore
	indexer        *indexing.Service
	searcher       *search.Service
	suggester      *suggest.Service
	jobManager     *jobs.Manager
	results        *cache.Cache[*search.Result]
	metrics        *metrics.Registry
	logger         *logging.Logger
	queryTimeout   time.Duration
	preloadWorkers int
}

// NewEngine creates an Engine. Datasets are loaded lazily on first use or by Preload.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Loader == nil {
		return nil, fmt.Errorf("dataset loader cannot be nil")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	if opts.SavedSearches == nil {
		opts.SavedSearches = savedsearch.NewMemoryStore()
	}
	if opts.JobWorkers <= 0 {
		opts.JobWorkers = defaultJobWorkers
	}
	if opts.PreloadWorkers <= 0 {
		opts.PreloadWorkers = defaultPreloadWorkers
	}

	indexer, err := indexing.NewService(indexing.Options{
		Now:            opts.Now,
		SearchStrategy: opts.SearchStrategy,
		SearchExclude:  opts.SearchExclude,
		Logger:         opts.Logger.With("component", "indexing"),
		OnStage:        opts.Metrics.RecordStage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create indexing service: %w", err)
	}

	results, err := cache.New[*search.Result](opts.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	searcher := search.NewService(opts.SavedSearches, opts.Logger.With("component", "search"))

	suggestOpts := []suggest.Option{suggest.WithLogger(opts.Logger.With("component", "suggest"))}
	if opts.SuggestWorkers > 0 {
		suggestOpts = append(suggestOpts, suggest.WithPoolSize(opts.SuggestWorkers))
	}
	suggester, err := suggest.NewService(opts.SavedSearches, searcher, suggestOpts...)
	if err != nil {
		results.Close()
		return nil, fmt.Errorf("failed to create suggestion service: %w", err)
	}

	jobManager, err := jobs.NewManager(opts.JobWorkers,
		jobs.WithRecorder(opts.Metrics),
		jobs.WithLogger(opts.Logger.With("component", "jobs")),
	)
	if err != nil {
		suggester.Release()
		results.Close()
		return nil, fmt.Errorf("failed to create job manager: %w", err)
	}
	jobManager.Start()

	return &Engine{
		datasets:       make(map[string]*slot),
		loader:         opts.Loader,
		saved:          opts.SavedSearches,
		indexer:        indexer,
		searcher:       searcher,
		suggester:      suggester,
		jobManager:     jobManager,
		results:        results,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		queryTimeout:   opts.QueryTimeout,
		preloadWorkers: opts.PreloadWorkers,
	}, nil
}

// GetJobManager returns the job manager for external access
func (e *Engine) GetJobManager() services.JobManager {
	return e.jobManager
}

// Metrics returns the registry the engine reports to.
func (e *Engine) Metrics() *metrics.Registry {
	return e.metrics
}

// Close stops background jobs and releases everything the engine owns.
func (e *Engine) Close() error {
	e.jobManager.Stop()
	e.suggester.Release()
	e.results.Close()
	if err := e.saved.Close(); err != nil {
		return fmt.Errorf("failed to close saved searches: %w", err)
	}
	// Syncing stderr fails on some platforms.
	_ = e.logger.Sync()
	return nil
}
