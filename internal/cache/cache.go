// Package cache memoizes query results per dataset generation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dgraph-io/ristretto/v2"
)

// Config sizes the cache. MaxCost is counted in result hits.
type Config struct {
	Enabled     bool  `yaml:"enabled"`
	MaxCost     int64 `yaml:"max_cost" validate:"omitempty,gt=0"`
	NumCounters int64 `yaml:"num_counters" validate:"omitempty,gt=0"`
}

// DefaultConfig returns the cache settings used when none are configured.
func DefaultConfig() Config {
	return Config{Enabled: true, MaxCost: 1 << 20, NumCounters: 1e5}
}

// Cache is a content-addressed result cache. A nil or disabled Cache misses every lookup.
type Cache[V any] struct {
	store *ristretto.Cache[string, V]
}

// New creates a cache. It returns a disabled cache when cfg.Enabled is false.
func New[V any](cfg Config) (*Cache[V], error) {
	if !cfg.Enabled {
		return &Cache[V]{}, nil
	}
	def := DefaultConfig()
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = def.MaxCost
	}
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = def.NumCounters
	}

	store, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
		// Costs are hit counts, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &Cache[V]{store: store}, nil
}

// Enabled reports whether lookups can hit.
func (c *Cache[V]) Enabled() bool {
	return c != nil && c.store != nil
}

// Key derives the cache key of a query against a dataset. generations lists
// the versions of every input the result depends on, the dataset generation first.
// query must marshal deterministically; maps do.
func Key(dataset string, query any, generations ...uint64) (string, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(dataset))
	h.Write([]byte{0})
	for _, g := range generations {
		h.Write([]byte(strconv.FormatUint(g, 10)))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the cached value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	if !c.Enabled() {
		var zero V
		return zero, false
	}
	return c.store.Get(key)
}

// Set stores value under key and waits until it is visible to Get.
// The cost is floored at 1.
func (c *Cache[V]) Set(key string, value V, cost int64) bool {
	if !c.Enabled() {
		return false
	}
	if cost < 1 {
		cost = 1
	}
	ok := c.store.Set(key, value, cost)
	c.store.Wait()
	return ok
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	if c.Enabled() {
		c.store.Clear()
	}
}

// Close releases the cache.
func (c *Cache[V]) Close() {
	if c.Enabled() {
		c.store.Close()
	}
}
