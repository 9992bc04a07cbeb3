package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/risseraka/matchmakr/internal/fulltext"
	"github.com/risseraka/matchmakr/internal/indexing"
	"github.com/risseraka/matchmakr/internal/logging"
	"github.com/risseraka/matchmakr/model"
	"github.com/risseraka/matchmakr/services"
)

// cancelCheckInterval is how many profiles are evaluated between context checks.
const cancelCheckInterval = 256

// Service evaluates queries against prepared datasets.
// It holds no per-query state, so one Service serves concurrent queries.
type Service struct {
	saved  services.SavedSearchReader
	logger *logging.Logger
}

// NewService creates a query Service. saved may be nil, in which case
// savedSearch parameters expand to nothing.
func NewService(saved services.SavedSearchReader, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{saved: saved, logger: logger}
}

// activeField is a scored field of the executed query with its compiled values.
type activeField struct {
	field  model.Field
	values []queryValue
}

// Query normalizes raw parameters and evaluates them against ds.
func (s *Service) Query(ctx context.Context, ds *indexing.Dataset, params Params) (*Result, error) {
	return s.Run(ctx, ds, ParseParams(params))
}

// Run evaluates an already normalized query against ds.
func (s *Service) Run(ctx context.Context, ds *indexing.Dataset, query model.Query) (*Result, error) {
	startTime := time.Now()
	if ds == nil {
		return nil, fmt.Errorf("dataset cannot be nil")
	}

	exp := s.expand(ctx, ds, query)
	active := activeFields(exp.query)

	var textMatches map[int64]fulltext.Match
	if needles := exp.query[model.FieldQ]; len(needles) > 0 && ds.Search != nil {
		found := ds.Search.Search(needles)
		textMatches = make(map[int64]fulltext.Match, len(found))
		for _, m := range found {
			textMatches[m.Profile.ID] = m
		}
	}

	var found []candidate
	for i, p := range ds.Profiles {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("query interrupted after %d of %d profiles: %w", i, len(ds.Profiles), err)
			}
		}
		if _, skip := exp.excluded[p.ID]; skip {
			continue
		}
		if hit, first, ok := evaluate(p, active, textMatches); ok {
			found = append(found, candidate{hit: hit, first: first})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query interrupted before sorting: %w", err)
	}
	// Equal scores keep union order: by first passed field, then snapshot order.
	sort.SliceStable(found, func(i, j int) bool {
		if c := found[i].hit.Score.Compare(found[j].hit.Score); c != 0 {
			return c > 0
		}
		return found[i].first < found[j].first
	})
	hits := make([]Hit, len(found))
	for i := range found {
		hits[i] = found[i].hit
	}

	result := &Result{
		QueryID: uuid.New().String(),
		Total:   len(ds.Profiles),
		Results: hits,
		Query:   exp.query,
	}
	if len(hits) != result.Total {
		count := len(hits)
		result.Count = &count
	}
	if _, ok := query[model.FieldQ]; ok {
		result.Template = newSaveTemplate(query)
	}
	result.Took = time.Since(startTime).Milliseconds()

	s.logger.Debug("query evaluated",
		"dataset", ds.Name,
		"fields", len(active),
		"hits", len(hits),
		"took_ms", result.Took)
	return result, nil
}

// Count returns the number of profiles query matches in ds.
func (s *Service) Count(ctx context.Context, ds *indexing.Dataset, query model.Query) (int, error) {
	result, err := s.Run(ctx, ds, query)
	if err != nil {
		return 0, err
	}
	return result.Len(), nil
}

// activeFields returns the scored fields of q in priority order.
func activeFields(q model.Query) []activeField {
	var active []activeField
	for _, f := range model.ScoredFields {
		values, ok := q[f]
		if !ok || len(values) == 0 {
			continue
		}
		if f == model.FieldQ {
			active = append(active, activeField{field: f})
			continue
		}
		if compiled := compileValues(f, values); len(compiled) > 0 {
			active = append(active, activeField{field: f, values: compiled})
		}
	}
	return active
}

// candidate is a kept hit with the priority index of the first field it passed.
type candidate struct {
	hit   Hit
	first int
}

// evaluate runs every active field on p. Fields combine as a union: p is kept
// when it passes at least one of them, unless it misses a '+' value anywhere.
// Fields p did not pass still contribute their non-match vector, so the
// leading count of matched fields ranks the union.
// The returned hit is freshly allocated; p is only read.
func evaluate(p *model.Profile, active []activeField, textMatches map[int64]fulltext.Match) (Hit, int, bool) {
	hit := Hit{
		Profile: p,
		Matches: make(map[model.Field][]string),
		Scores:  make(map[model.Field]Vector, len(active)),
	}

	first := -1
	if len(active) == 0 {
		first = 0
	}
	matchedFields := 0
	composite := Vector{0}
	for i, af := range active {
		var res fieldResult
		if af.field == model.FieldQ {
			res = textResult(textMatches, p.ID)
		} else {
			res = fieldFilters[af.field](p, af.values)
		}
		if res.rejected {
			return Hit{}, 0, false
		}
		if res.passed && first < 0 {
			first = i
		}
		if res.matched {
			matchedFields++
		}
		hit.Scores[af.field] = res.vector
		if len(res.matches) > 0 {
			hit.Matches[af.field] = res.matches
		}
		composite = append(composite, res.vector...)
	}
	if first < 0 {
		return Hit{}, 0, false
	}

	composite[0] = float64(matchedFields)
	hit.Score = composite
	return hit, first, true
}

func textResult(textMatches map[int64]fulltext.Match, id int64) fieldResult {
	m, ok := textMatches[id]
	if !ok {
		return fieldResult{vector: Vector{0}}
	}
	res := fieldResult{passed: true, matched: true, vector: Vector{1}}
	for _, c := range m.Captures {
		res.matches = append(res.matches, c.Field+":"+c.Value)
	}
	return res
}
