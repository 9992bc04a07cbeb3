package search

import (
	"math"
	"strconv"
	"strings"

	"github.com/risseraka/matchmakr/internal/normalize"
	"github.com/risseraka/matchmakr/model"
)

// queryValue is one compiled value of a field constraint.
type queryValue struct {
	raw  string
	must bool
	rng  normalize.Range
	id   int64
}

// fieldResult is the outcome of one field filter on one profile.
// rejected marks a '+' value the profile did not match.
type fieldResult struct {
	passed   bool
	matched  bool
	rejected bool
	vector   Vector
	matches  []string
}

// fieldFilter filters and scores a profile against the values of one field.
type fieldFilter func(p *model.Profile, values []queryValue) fieldResult

// fieldFilters resolves each scored field to its filter once.
var fieldFilters = map[model.Field]fieldFilter{
	model.FieldSkills:    filterSkills,
	model.FieldCompanies: positionFilter(func(pos model.Position) string { return pos.CompanyName }),
	model.FieldTitles:    positionFilter(func(pos model.Position) string { return pos.Title }),
	model.FieldID:        filterID,
	model.FieldName:      textFilter(func(p *model.Profile) string { return p.Name }),
	model.FieldLocation:  textFilter(func(p *model.Profile) string { return p.Location }),
	model.FieldSeniority: filterSeniority,
}

func compileValues(f model.Field, values []string) []queryValue {
	out := make([]queryValue, 0, len(values))
	for _, v := range values {
		raw, must := normalize.SplitMust(v)
		qv := queryValue{raw: raw, must: must}
		switch f {
		case model.FieldSeniority:
			r, ok := normalize.ParseRange(raw)
			if !ok {
				continue
			}
			qv.rng = r
		case model.FieldID:
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			qv.id = id
		}
		out = append(out, qv)
	}
	return out
}

// passes applies the per-field rule: every '+' value matched, and at least one
// unprefixed value matched when there are any.
func passes(values []queryValue, matched []bool) (passed, any, rejected bool) {
	mayCount, mayMatched := 0, 0
	for i, v := range values {
		if matched[i] {
			any = true
		}
		if v.must {
			if !matched[i] {
				rejected = true
			}
			continue
		}
		mayCount++
		if matched[i] {
			mayMatched++
		}
	}
	passed = !rejected && (mayCount == 0 || mayMatched > 0)
	return passed, any, rejected
}

func countTrue(bs []bool) float64 {
	n := 0.0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// filterSkills matches skills by normalized name. Each value scores the
// endorsement and super-endorsement counts of its best matching skill, plus one
// so that a matched skill without endorsements still outranks a miss.
func filterSkills(p *model.Profile, values []queryValue) fieldResult {
	matched := make([]bool, len(values))
	vector := Vector{0}
	var matches []string

	for i, v := range values {
		var best *model.Skill
		for j := range p.Skills {
			s := &p.Skills[j]
			if normalize.Normalize(s.Name) != v.raw {
				continue
			}
			if best == nil ||
				s.EndorsementCount > best.EndorsementCount ||
				(s.EndorsementCount == best.EndorsementCount && s.SuperEndorsementCount > best.SuperEndorsementCount) {
				best = s
			}
		}
		if best == nil {
			vector = append(vector, 0, 0)
			continue
		}
		matched[i] = true
		matches = append(matches, best.Name)
		vector = append(vector, float64(best.EndorsementCount+1), float64(best.SuperEndorsementCount+1))
	}

	vector[0] = countTrue(matched)
	passed, any, rejected := passes(values, matched)
	return fieldResult{passed: passed, matched: any, rejected: rejected, vector: vector, matches: matches}
}

// positionFilter matches positions on one attribute. Each value scores the
// tenure and start date of its best matching position: longest tenure first,
// then most recent start.
func positionFilter(attr func(model.Position) string) fieldFilter {
	return func(p *model.Profile, values []queryValue) fieldResult {
		matched := make([]bool, len(values))
		vector := Vector{0}
		var matches []string

		for i, v := range values {
			var best *model.Position
			for j := range p.Positions {
				pos := &p.Positions[j]
				if normalize.Normalize(attr(*pos)) != v.raw {
					continue
				}
				if best == nil ||
					pos.Seniority > best.Seniority ||
					(pos.Seniority == best.Seniority && pos.StartDate > best.StartDate) {
					best = pos
				}
			}
			if best == nil {
				vector = append(vector, 0, 0)
				continue
			}
			matched[i] = true
			matches = append(matches, attr(*best))
			vector = append(vector, best.Seniority, float64(best.StartDate))
		}

		vector[0] = countTrue(matched)
		passed, any, rejected := passes(values, matched)
		return fieldResult{passed: passed, matched: any, rejected: rejected, vector: vector, matches: matches}
	}
}

// textFilter matches by substring. An exact match scores +Inf; otherwise an
// earlier occurrence scores higher; a miss scores 0.
func textFilter(attr func(*model.Profile) string) fieldFilter {
	return func(p *model.Profile, values []queryValue) fieldResult {
		text := normalize.Normalize(attr(p))
		matched := make([]bool, len(values))
		vector := Vector{0}

		for i, v := range values {
			switch idx := strings.Index(text, v.raw); {
			case text == "":
				vector = append(vector, 0)
			case text == v.raw:
				matched[i] = true
				vector = append(vector, math.Inf(1))
			case idx >= 0:
				matched[i] = true
				vector = append(vector, float64(len(text)-idx))
			default:
				vector = append(vector, 0)
			}
		}

		vector[0] = countTrue(matched)
		passed, any, rejected := passes(values, matched)
		res := fieldResult{passed: passed, matched: any, rejected: rejected, vector: vector}
		if any {
			res.matches = []string{attr(p)}
		}
		return res
	}
}

// filterSeniority keeps profiles whose seniority lies in the ranges and scores the seniority itself.
func filterSeniority(p *model.Profile, values []queryValue) fieldResult {
	matched := make([]bool, len(values))
	if p.HasSeniority {
		for i, v := range values {
			matched[i] = v.rng.Contains(p.Seniority)
		}
	}

	passed, any, rejected := passes(values, matched)
	res := fieldResult{passed: passed, matched: any, rejected: rejected, vector: Vector{0}}
	if any {
		res.vector = Vector{p.Seniority}
		res.matches = []string{strconv.FormatFloat(p.Seniority, 'f', 1, 64)}
	}
	return res
}

func filterID(p *model.Profile, values []queryValue) fieldResult {
	matched := make([]bool, len(values))
	for i, v := range values {
		matched[i] = v.id == p.ID
	}

	passed, any, rejected := passes(values, matched)
	res := fieldResult{passed: passed, matched: any, rejected: rejected, vector: Vector{0}}
	if any {
		res.vector = Vector{1}
		res.matches = []string{strconv.FormatInt(p.ID, 10)}
	}
	return res
}
