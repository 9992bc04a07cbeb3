package index

import (
	"github.com/risseraka/matchmakr/model"
)

// FieldIndex maps a normalized field key to the profiles holding it.
// A unique index keeps the most recent profile per key (primary-key lookups),
// a non-unique index accumulates every profile in snapshot order.
// FieldIndex is built once and read-only afterwards.
type FieldIndex struct {
	Field  model.Field
	Unique bool

	entries map[string][]*model.Profile
	// order records keys in first-seen order so iteration is deterministic.
	order []string
}

// Build indexes profiles by field. A profile resolving to several keys is
// indexed under each of them, and at most once per key.
func Build(profiles []*model.Profile, field model.Field, unique bool) *FieldIndex {
	ix := &FieldIndex{
		Field:   field,
		Unique:  unique,
		entries: make(map[string][]*model.Profile),
	}

	for _, p := range profiles {
		for _, key := range Keys(p, field) {
			ix.add(key, p)
		}
	}
	return ix
}

func (ix *FieldIndex) add(key string, p *model.Profile) {
	existing, ok := ix.entries[key]
	if !ok {
		ix.order = append(ix.order, key)
	}
	if ix.Unique {
		ix.entries[key] = []*model.Profile{p}
		return
	}
	ix.entries[key] = append(existing, p)
}

// Lookup returns the profiles indexed under key, or nil.
func (ix *FieldIndex) Lookup(key string) []*model.Profile {
	if ix == nil {
		return nil
	}
	return ix.entries[key]
}

// Get returns the single profile of a unique index entry.
func (ix *FieldIndex) Get(key string) (*model.Profile, bool) {
	items := ix.Lookup(key)
	if len(items) == 0 {
		return nil, false
	}
	return items[len(items)-1], true
}

// Has reports whether key is present.
func (ix *FieldIndex) Has(key string) bool {
	if ix == nil {
		return false
	}
	_, ok := ix.entries[key]
	return ok
}

// Keys returns the keys in first-seen order.
func (ix *FieldIndex) Keys() []string {
	if ix == nil {
		return nil
	}
	return append([]string(nil), ix.order...)
}

// Len returns the number of distinct keys.
func (ix *FieldIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.order)
}
