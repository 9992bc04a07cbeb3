package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, "data", s.DataDir)
	assert.Equal(t, BackendJSON, s.SavedSearchBackend)
	assert.Equal(t, "data/saved-searches.json", s.SavedSearches)
	assert.Equal(t, ":8080", s.Listen)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, 5*time.Second, s.QueryTimeout)
	assert.True(t, s.Cache.Enabled)
	assert.Equal(t, "plain", s.SearchStrategy)
	assert.Equal(t, []string{"profileUrl", "pictureUrl"}, s.SearchExclude)
	assert.Empty(t, s.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matchmakr.yaml")
	content := `
data_dir: /srv/profiles
saved_search_backend: badger
default_dataset: base
preload: [base, alumni]
log_level: debug
query_timeout: 250ms
search_strategy: capture
cache:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/profiles", s.DataDir)
	assert.Equal(t, BackendBadger, s.SavedSearchBackend)
	assert.Equal(t, "/srv/profiles/badger", s.BadgerDir)
	assert.Empty(t, s.SavedSearches)
	assert.Equal(t, []string{"base", "alumni"}, s.Preload)
	assert.Equal(t, 250*time.Millisecond, s.QueryTimeout)
	assert.Equal(t, "capture", s.SearchStrategy)
	assert.False(t, s.Cache.Enabled, "an explicit false survives defaults")
	assert.Positive(t, s.Cache.MaxCost)
	assert.Empty(t, s.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unterminated"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	s := Default()
	err := s.ApplyEnv(envFrom(map[string]string{
		"MATCHMAKR_DATA_DIR":      "/tmp/profiles",
		"MATCHMAKR_PRELOAD":       "base, alumni ,",
		"MATCHMAKR_QUERY_TIMEOUT": "2s",
		"MATCHMAKR_CACHE_ENABLED": "false",
		"MATCHMAKR_JOB_WORKERS":   "8",
		"OTHER_DATA_DIR":          "ignored",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/profiles", s.DataDir)
	assert.Equal(t, []string{"base", "alumni"}, s.Preload)
	assert.Equal(t, 2*time.Second, s.QueryTimeout)
	assert.False(t, s.Cache.Enabled)
	assert.Equal(t, 8, s.JobWorkers)
}

func TestApplyEnvInvalidValues(t *testing.T) {
	s := Default()
	err := s.ApplyEnv(envFrom(map[string]string{
		"MATCHMAKR_QUERY_TIMEOUT":   "soon",
		"MATCHMAKR_PRELOAD_WORKERS": "many",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MATCHMAKR_QUERY_TIMEOUT")
	assert.Contains(t, err.Error(), "MATCHMAKR_PRELOAD_WORKERS")
	assert.Equal(t, 5*time.Second, s.QueryTimeout, "invalid values leave settings untouched")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *Settings)
		expected []string
	}{
		{
			name:     "unknown backend",
			mutate:   func(s *Settings) { s.SavedSearchBackend = "postgres" },
			expected: []string{"SavedSearchBackend"},
		},
		{
			name:     "unknown log level",
			mutate:   func(s *Settings) { s.LogLevel = "verbose" },
			expected: []string{"LogLevel"},
		},
		{
			name:     "unknown strategy",
			mutate:   func(s *Settings) { s.SearchStrategy = "fuzzy" },
			expected: []string{"SearchStrategy"},
		},
		{
			name: "badger backend needs a directory",
			mutate: func(s *Settings) {
				s.SavedSearchBackend = BackendBadger
				s.BadgerDir = ""
			},
			expected: []string{"BadgerDir"},
		},
		{
			name:     "negative timeout",
			mutate:   func(s *Settings) { s.QueryTimeout = -time.Second },
			expected: []string{"QueryTimeout"},
		},
		{
			name:     "duplicate preload",
			mutate:   func(s *Settings) { s.Preload = []string{"base", "base"} },
			expected: []string{"Duplicate value 'base' in preload"},
		},
		{
			name:     "preload escaping the data directory",
			mutate:   func(s *Settings) { s.Preload = []string{"../etc"} },
			expected: []string{"preload"},
		},
		{
			name:     "cache sizes",
			mutate:   func(s *Settings) { s.Cache.MaxCost = -1 },
			expected: []string{"MaxCost"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			conflicts := s.Validate()
			require.Len(t, conflicts, len(tt.expected), "conflicts: %v", conflicts)
			for i, want := range tt.expected {
				assert.True(t, strings.Contains(conflicts[i], want), "conflict %q should mention %q", conflicts[i], want)
			}
		})
	}
}
