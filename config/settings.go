// Package config provides the runtime settings of a matchmakr process:
// where datasets and saved searches live, how queries run and how the
// server listens. Settings come from an optional YAML file, then
// MATCHMAKR_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/risseraka/matchmakr/internal/cache"
	"github.com/risseraka/matchmakr/internal/fulltext"
	"github.com/risseraka/matchmakr/store"
)

// Saved-search backends.
const (
	BackendJSON   = "json"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "MATCHMAKR_"

var validate = validator.New()

// Settings contains all configuration options of a matchmakr process.
type Settings struct {
	// DataDir holds one dataset per <data_dir>/<name>.json.
	DataDir string `yaml:"data_dir" validate:"required"`
	// SavedSearches is the file of the json backend.
	SavedSearches      string   `yaml:"saved_searches" validate:"required_if=SavedSearchBackend json"`
	SavedSearchBackend string   `yaml:"saved_search_backend" validate:"oneof=json badger memory"`
	BadgerDir          string   `yaml:"badger_dir" validate:"required_if=SavedSearchBackend badger"`
	DefaultDataset     string   `yaml:"default_dataset"`
	Preload            []string `yaml:"preload"`
	Listen             string   `yaml:"listen" validate:"required"`
	LogLevel           string   `yaml:"log_level" validate:"oneof=debug info warn error"`

	QueryTimeout   time.Duration `yaml:"query_timeout" validate:"gte=0"`
	Cache          cache.Config  `yaml:"cache"`
	SearchStrategy string        `yaml:"search_strategy" validate:"oneof=plain capture"`
	// SearchExclude lists the profile leaves left out of free-text search.
	SearchExclude  []string `yaml:"search_exclude"`
	PreloadWorkers int      `yaml:"preload_workers" validate:"gte=0"`
	JobWorkers     int      `yaml:"job_workers" validate:"gte=0"`
}

// Default returns settings with every default applied.
func Default() Settings {
	s := Settings{Cache: cache.Config{Enabled: true}}
	s.ApplyDefaults()
	return s
}

// Load reads settings from a YAML file. An empty path yields the defaults.
// Defaults fill in whatever the file leaves out.
func Load(path string) (Settings, error) {
	s := Settings{Cache: cache.Config{Enabled: true}}
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is given by the operator
		if err != nil {
			return Settings{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	s.ApplyDefaults()
	return s, nil
}

// ApplyDefaults sets default values for any unset fields.
func (s *Settings) ApplyDefaults() {
	if s.DataDir == "" {
		s.DataDir = "data"
	}
	if s.SavedSearchBackend == "" {
		s.SavedSearchBackend = BackendJSON
	}
	if s.SavedSearches == "" && s.SavedSearchBackend == BackendJSON {
		s.SavedSearches = s.DataDir + "/saved-searches.json"
	}
	if s.BadgerDir == "" && s.SavedSearchBackend == BackendBadger {
		s.BadgerDir = s.DataDir + "/badger"
	}
	if s.Listen == "" {
		s.Listen = ":8080"
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.QueryTimeout == 0 {
		s.QueryTimeout = 5 * time.Second
	}
	// Cache.Enabled is left alone: false is a meaningful setting.
	def := cache.DefaultConfig()
	if s.Cache.MaxCost == 0 {
		s.Cache.MaxCost = def.MaxCost
	}
	if s.Cache.NumCounters == 0 {
		s.Cache.NumCounters = def.NumCounters
	}
	if s.SearchStrategy == "" {
		s.SearchStrategy = fulltext.StrategyPlain
	}
	if s.SearchExclude == nil {
		s.SearchExclude = append([]string(nil), fulltext.DefaultExclude...)
	}
	if s.PreloadWorkers == 0 {
		s.PreloadWorkers = 4
	}
	if s.JobWorkers == 0 {
		s.JobWorkers = 2
	}
}

// ApplyEnv overrides settings from MATCHMAKR_* variables found through lookup.
// List values are comma-separated.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = splitList(v)
		}
	}

	str("DATA_DIR", &s.DataDir)
	str("SAVED_SEARCHES", &s.SavedSearches)
	str("SAVED_SEARCH_BACKEND", &s.SavedSearchBackend)
	str("BADGER_DIR", &s.BadgerDir)
	str("DEFAULT_DATASET", &s.DefaultDataset)
	str("LISTEN", &s.Listen)
	str("LOG_LEVEL", &s.LogLevel)
	str("SEARCH_STRATEGY", &s.SearchStrategy)
	list("PRELOAD", &s.Preload)
	list("SEARCH_EXCLUDE", &s.SearchExclude)

	var errs []error
	if v, ok := lookup(EnvPrefix + "QUERY_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sQUERY_TIMEOUT: %w", EnvPrefix, err))
		} else {
			s.QueryTimeout = d
		}
	}
	if v, ok := lookup(EnvPrefix + "CACHE_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCACHE_ENABLED: %w", EnvPrefix, err))
		} else {
			s.Cache.Enabled = b
		}
	}
	ints := map[string]*int{
		"PRELOAD_WORKERS": &s.PreloadWorkers,
		"JOB_WORKERS":     &s.JobWorkers,
	}
	for name, dst := range ints {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				continue
			}
			*dst = n
		}
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the settings and returns every conflict found.
func (s *Settings) Validate() []string {
	var conflicts []string

	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				conflicts = append(conflicts, fmt.Sprintf("%s: failed on '%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			conflicts = append(conflicts, err.Error())
		}
	}

	conflicts = append(conflicts, checkDuplicates("preload", s.Preload)...)
	for _, name := range s.Preload {
		if err := store.ValidateName(name); err != nil {
			conflicts = append(conflicts, fmt.Sprintf("preload: %v", err))
		}
	}
	if s.DefaultDataset != "" {
		if err := store.ValidateName(s.DefaultDataset); err != nil {
			conflicts = append(conflicts, fmt.Sprintf("default_dataset: %v", err))
		}
	}
	return conflicts
}

// checkDuplicates checks for duplicate values within a list
func checkDuplicates(fieldName string, values []string) []string {
	var conflicts []string
	seen := make(map[string]bool)

	for _, v := range values {
		if seen[v] {
			conflicts = append(conflicts, fmt.Sprintf("Duplicate value '%s' in %s", v, fieldName))
		}
		seen[v] = true
	}
	return conflicts
}
