// Package savedsearch persists named queries.
//
// Three stores share one record format: a JSON file keyed by search key, a
// badger key/value store, and an in-memory map for tests and ephemeral runs.
package savedsearch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	internalErrors "github.com/risseraka/matchmakr/internal/errors"
	"github.com/risseraka/matchmakr/internal/normalize"
	"github.com/risseraka/matchmakr/model"
)

// Table is the only persistence table a save may target.
const Table = "search"

// record is the stored form of a saved search, without its key.
type record struct {
	Query       model.Query `json:"query"`
	Description string      `json:"description,omitempty"`
}

// legacyRecord is the older shape where query is a URI-encoded JSON string.
type legacyRecord struct {
	Query       json.RawMessage `json:"query"`
	Description string          `json:"description,omitempty"`
}

func toRecord(s model.SavedSearch) record {
	return record{Query: s.Query, Description: s.Description}
}

// decodeRecord accepts the plain object form and the legacy form, which wraps
// the whole record in a JSON string and URI-encodes the query.
func decodeRecord(key string, raw []byte) (model.SavedSearch, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return model.SavedSearch{}, fmt.Errorf("saved search %q: %w", key, err)
		}
		raw = []byte(inner)
	}

	var lr legacyRecord
	if err := json.Unmarshal(raw, &lr); err != nil {
		return model.SavedSearch{}, fmt.Errorf("saved search %q: %w", key, err)
	}
	query, err := decodeQuery(lr.Query)
	if err != nil {
		return model.SavedSearch{}, fmt.Errorf("saved search %q: %w", key, err)
	}
	return model.SavedSearch{Key: key, Query: query, Description: lr.Description}, nil
}

func decodeQuery(raw json.RawMessage) (model.Query, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return model.Query{}, nil
	}
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, err
		}
		decoded, err := url.PathUnescape(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode query: %w", err)
		}
		raw = []byte(decoded)
	}

	var q model.Query
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, err
	}
	if q == nil {
		q = model.Query{}
	}
	return q, nil
}

// ParseSave validates the parameters of a save request and decodes its value.
// value holds {"query": {...}, "description": "..."} in either stored form.
func ParseSave(table, key, value string) (model.SavedSearch, error) {
	var missing []string
	if strings.TrimSpace(table) == "" {
		missing = append(missing, "table")
	}
	if strings.TrimSpace(key) == "" {
		missing = append(missing, "key")
	}
	if strings.TrimSpace(value) == "" {
		missing = append(missing, "value")
	}
	if len(missing) > 0 {
		return model.SavedSearch{}, internalErrors.NewMissingParameterError(missing...)
	}

	if normalize.Normalize(table) != Table {
		return model.SavedSearch{}, internalErrors.NewValidationError("table", fmt.Sprintf("unsupported table '%s'", table))
	}

	saved, err := decodeRecord(strings.TrimSpace(key), []byte(value))
	if err != nil {
		return model.SavedSearch{}, internalErrors.NewValidationError("value", err.Error())
	}
	return saved, nil
}

// entries is the in-memory content shared by the stores.
type entries map[string]model.SavedSearch

func (e entries) list() []model.SavedSearch {
	out := make([]model.SavedSearch, 0, len(e))
	for _, s := range e {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (e entries) get(key string) (model.SavedSearch, error) {
	s, ok := e[key]
	if !ok {
		return model.SavedSearch{}, internalErrors.NewSavedSearchNotFoundError(key)
	}
	return s, nil
}

// appended returns the search stored under key with patch merged into its query.
func appended(existing model.SavedSearch, found bool, key string, patch model.Query) model.SavedSearch {
	if !found {
		return model.SavedSearch{Key: key, Query: patch.Clone()}
	}
	out := existing
	out.Query = existing.Query.Clone()
	if out.Query == nil {
		out.Query = model.Query{}
	}
	out.Query.Merge(patch)
	return out
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return internalErrors.NewMissingParameterError("key")
	}
	return nil
}
