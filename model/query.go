package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Query maps a field to its raw or normalized values.
// Values prefixed with '+' must match; unprefixed values may match.
type Query map[Field][]string

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	out := make(Query, len(q))
	for f, values := range q {
		out[f] = append([]string(nil), values...)
	}
	return out
}

// Merge unions the values of other into q, keeping existing values first.
func (q Query) Merge(other Query) {
	for f, values := range other {
		q.Add(f, values...)
	}
}

// Add appends values to field f, skipping values already present.
func (q Query) Add(f Field, values ...string) {
	existing := q[f]
	seen := make(map[string]struct{}, len(existing)+len(values))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		existing = append(existing, v)
	}
	if len(existing) > 0 {
		q[f] = existing
	}
}

// Fields returns the fields of q in lexical order.
func (q Query) Fields() []Field {
	fields := make([]Field, 0, len(q))
	for f := range q {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// UnmarshalJSON accepts both list values and single string values.
func (q *Query) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Query, len(raw))
	for key, value := range raw {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			out[Field(key)] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err != nil {
			return fmt.Errorf("query field %q: %w", key, err)
		}
		out[Field(key)] = []string{single}
	}
	*q = out
	return nil
}

// SavedSearch is a persisted, named query body.
type SavedSearch struct {
	Key         string `json:"key"`
	Query       Query  `json:"query"`
	Description string `json:"description,omitempty"`
}
