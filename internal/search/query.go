package search

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/risseraka/matchmakr/index"
	internalErrors "github.com/risseraka/matchmakr/internal/errors"
	"github.com/risseraka/matchmakr/internal/indexing"
	"github.com/risseraka/matchmakr/internal/normalize"
	"github.com/risseraka/matchmakr/model"
)

// similarFields are copied from a profile referenced by similar=<id>.
var similarFields = []model.Field{model.FieldSkills, model.FieldCompanies, model.FieldTitles}

// ParseParams normalizes every recognized parameter into a query.
// Unknown parameters and values that normalize to nothing are dropped.
func ParseParams(params Params) model.Query {
	q := make(model.Query, len(params))
	for key, raw := range params {
		f, err := model.ParseField(key)
		if err != nil {
			continue
		}
		if values := normalizeField(f, raw); len(values) > 0 {
			q[f] = values
		}
	}
	return q
}

// QueryParams converts a stored query back into raw parameters.
func QueryParams(q model.Query) Params {
	p := make(Params, len(q))
	for f, values := range q {
		p[string(f)] = append([]string(nil), values...)
	}
	return p
}

func normalizeField(f model.Field, raw []string) []string {
	switch f {
	case model.FieldSavedSearch:
		return splitTrimmed(raw, ",")
	case model.FieldQ:
		return splitTrimmed(raw, " ")
	case model.FieldID, model.FieldSimilar:
		return splitIDs(raw)
	case model.FieldSeniority:
		return splitRanges(raw)
	default:
		return normalize.SplitValues(raw)
	}
}

// splitTrimmed splits on sep and drops empty and duplicate parts without normalizing them.
func splitTrimmed(raw []string, sep string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, r := range raw {
		for _, part := range strings.Split(r, sep) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

func splitIDs(raw []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range splitTrimmed(raw, ",") {
		value, must := normalize.SplitMust(part)
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		key := strconv.FormatInt(id, 10)
		if must {
			key = normalize.MustPrefix + key
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func splitRanges(raw []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range splitTrimmed(raw, ",") {
		value, must := normalize.SplitMust(part)
		r, ok := normalize.ParseRange(value)
		if !ok {
			continue
		}
		key := r.String()
		if must {
			key = normalize.MustPrefix + key
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// expansion is the outcome of the modifier stage.
type expansion struct {
	query    model.Query
	excluded map[int64]struct{}
}

// expand applies the modifiers in order: q tokens, saved searches, similar profiles.
// Expansion only ever adds values; it never removes a value the caller gave.
func (s *Service) expand(ctx context.Context, ds *indexing.Dataset, query model.Query) expansion {
	out := expansion{query: query.Clone(), excluded: make(map[int64]struct{})}
	q := out.query

	if tokens, ok := q[model.FieldQ]; ok {
		delete(q, model.FieldQ)
		needles := parseQ(q, tokens)
		if len(needles) > 0 {
			q[model.FieldQ] = needles
		}
	}

	if keys := q[model.FieldSavedSearch]; len(keys) > 0 && s.saved != nil {
		for _, key := range keys {
			saved, err := s.saved.Get(ctx, key)
			if err != nil {
				if !errors.Is(err, internalErrors.ErrSavedSearchNotFound) {
					s.logger.Warn("saved search unavailable during expansion", "key", key, "error", err)
				}
				continue
			}
			stored := ParseParams(QueryParams(saved.Query))
			delete(stored, model.FieldSavedSearch)
			if tokens, ok := stored[model.FieldQ]; ok {
				delete(stored, model.FieldQ)
				if needles := parseQ(stored, tokens); len(needles) > 0 {
					stored[model.FieldQ] = needles
				}
			}
			q.Merge(stored)
		}
	}

	for _, raw := range q[model.FieldSimilar] {
		value, _ := normalize.SplitMust(raw)
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		p, ok := ds.Profile(id)
		if !ok {
			continue
		}
		out.excluded[id] = struct{}{}
		for _, f := range similarFields {
			q.Add(f, index.Keys(p, f)...)
		}
	}
	return out
}

// parseQ merges field:value tokens into q and returns the normalized bare needles.
func parseQ(q model.Query, tokens []string) []string {
	var needles []string
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		if i := strings.Index(tok, ":"); i > 0 {
			f, err := model.ParseField(tok[:i])
			if err != nil || f == model.FieldQ {
				continue
			}
			q.Add(f, normalizeField(f, []string{tok[i+1:]})...)
			continue
		}
		n := normalize.Normalize(tok)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		needles = append(needles, n)
	}
	return needles
}
