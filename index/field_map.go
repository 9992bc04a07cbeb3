package index

import (
	"sort"
	"strings"

	"github.com/risseraka/matchmakr/model"
)

// MapEntry aggregates the profiles sharing one distinct normalized field value.
type MapEntry struct {
	Name  string           `json:"name"`
	Count int              `json:"count"`
	Items []*model.Profile `json:"-"`
}

// IDs returns the ids of the entry's profiles.
func (e MapEntry) IDs() []int64 {
	ids := make([]int64, len(e.Items))
	for i, p := range e.Items {
		ids[i] = p.ID
	}
	return ids
}

// FieldMap lists one entry per distinct value of a field and keeps the
// underlying non-unique index for reverse lookups.
type FieldMap struct {
	Field   model.Field
	Entries []MapEntry
	Index   *FieldIndex

	byName map[string]int
}

// BuildFieldMap builds the aggregate map of field over profiles. Entries keep
// first-seen order; use SortedByCount for listings.
func BuildFieldMap(profiles []*model.Profile, field model.Field) *FieldMap {
	ix := Build(profiles, field, false)

	m := &FieldMap{
		Field:   field,
		Entries: make([]MapEntry, 0, ix.Len()),
		Index:   ix,
		byName:  make(map[string]int, ix.Len()),
	}
	for _, key := range ix.order {
		items := ix.entries[key]
		m.byName[key] = len(m.Entries)
		m.Entries = append(m.Entries, MapEntry{Name: key, Count: len(items), Items: items})
	}
	return m
}

// Entry returns the entry for a normalized name.
func (m *FieldMap) Entry(name string) (MapEntry, bool) {
	if m == nil {
		return MapEntry{}, false
	}
	i, ok := m.byName[name]
	if !ok {
		return MapEntry{}, false
	}
	return m.Entries[i], true
}

// Len returns the number of distinct values.
func (m *FieldMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

// SortedByCount returns the entries ordered by count descending, ties by name.
func (m *FieldMap) SortedByCount() []MapEntry {
	if m == nil {
		return nil
	}
	out := append([]MapEntry(nil), m.Entries...)
	SortEntries(out)
	return out
}

// Filter returns the entries whose name contains the normalized needle,
// ordered by count descending. An empty needle keeps every entry.
func (m *FieldMap) Filter(needle string) []MapEntry {
	if m == nil {
		return nil
	}
	if needle == "" {
		return m.SortedByCount()
	}
	needle = Key(m.Field, needle)

	var out []MapEntry
	for _, e := range m.Entries {
		if strings.Contains(e.Name, needle) {
			out = append(out, e)
		}
	}
	SortEntries(out)
	return out
}

// SortEntries orders entries by count descending, ties by name ascending.
func SortEntries(entries []MapEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
}
