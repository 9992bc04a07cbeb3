package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/risseraka/matchmakr/config"
	"github.com/risseraka/matchmakr/internal/engine"
	"github.com/risseraka/matchmakr/internal/logging"
	"github.com/risseraka/matchmakr/internal/savedsearch"
	"github.com/risseraka/matchmakr/services"
	"github.com/risseraka/matchmakr/store"
)

// runtime is what every command needs: validated settings, a logger and an engine.
type runtime struct {
	settings config.Settings
	logger   *logging.Logger
	engine   *engine.Engine
}

func (r *runtime) Close() {
	if err := r.engine.Close(); err != nil {
		r.logger.Warn("Failed to close engine", "error", err)
	}
}

// loadSettings reads the config file, then the environment, then the flags.
func loadSettings(c *cli.Context) (config.Settings, error) {
	settings, err := config.Load(c.String("config"))
	if err != nil {
		return config.Settings{}, err
	}
	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		return config.Settings{}, err
	}

	overrides := map[string]*string{
		"data-dir":             &settings.DataDir,
		"log-level":            &settings.LogLevel,
		"saved-search-backend": &settings.SavedSearchBackend,
		"saved-searches":       &settings.SavedSearches,
		"badger-dir":           &settings.BadgerDir,
		"listen":               &settings.Listen,
	}
	for name, target := range overrides {
		if c.IsSet(name) {
			*target = c.String(name)
		}
	}
	if c.IsSet("preload") {
		settings.Preload = c.StringSlice("preload")
	}

	if problems := settings.Validate(); len(problems) > 0 {
		return config.Settings{}, fmt.Errorf("invalid settings:\n  %s", strings.Join(problems, "\n  "))
	}
	return settings, nil
}

func openSavedSearches(settings config.Settings, logger *logging.Logger) (services.SavedSearchStore, error) {
	switch settings.SavedSearchBackend {
	case config.BackendBadger:
		return savedsearch.OpenBadgerStore(settings.BadgerDir, false, logger)
	case config.BackendMemory:
		return savedsearch.NewMemoryStore(), nil
	default:
		return savedsearch.NewFileStore(settings.SavedSearches, logger), nil
	}
}

func newRuntime(c *cli.Context) (*runtime, error) {
	settings, err := loadSettings(c)
	if err != nil {
		return nil, err
	}
	logger := logging.New(settings.LogLevel)

	saved, err := openSavedSearches(settings, logger.With("component", "savedsearch"))
	if err != nil {
		return nil, fmt.Errorf("failed to open saved searches: %w", err)
	}

	eng, err := engine.NewEngine(engine.Options{
		Loader:         store.NewFileLoader(settings.DataDir),
		SavedSearches:  saved,
		Logger:         logger,
		Cache:          settings.Cache,
		QueryTimeout:   settings.QueryTimeout,
		SearchStrategy: settings.SearchStrategy,
		SearchExclude:  settings.SearchExclude,
		JobWorkers:     settings.JobWorkers,
		PreloadWorkers: settings.PreloadWorkers,
	})
	if err != nil {
		_ = saved.Close()
		return nil, err
	}
	return &runtime{settings: settings, logger: logger, engine: eng}, nil
}

// dataset resolves the --dataset flag against default_dataset.
func (r *runtime) dataset(c *cli.Context) (string, error) {
	if name := c.String("dataset"); name != "" {
		return name, nil
	}
	if r.settings.DefaultDataset != "" {
		return r.settings.DefaultDataset, nil
	}
	return "", fmt.Errorf("no dataset given: pass --dataset or set default_dataset")
}
