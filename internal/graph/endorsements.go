// Package graph derives the endorsement graph of a dataset: who endorsed whom,
// per-skill endorsement distributions, and the relations of every entity id.
package graph

import (
	"math"
	"sort"

	"github.com/risseraka/matchmakr/internal/normalize"
	"github.com/risseraka/matchmakr/model"
)

// Endorsements holds the adjacency and distribution maps of a dataset.
type Endorsements struct {
	// Skilled maps a normalized skill to the profiles holding it and their skill record.
	Skilled map[string]map[int64]*model.Skill
	// Counts maps a normalized skill to every non-zero endorsement count observed, sorted descending.
	Counts map[string][]int
	// Endorsers maps an endorser id to the profile ids it endorsed, one entry per endorsed skill.
	Endorsers map[int64][]int64
	// Endorsees maps a profile id to the endorser ids that endorsed it, one entry per endorsed skill.
	Endorsees map[int64][]int64
}

// BuildEndorsements scans every skill of every profile once.
func BuildEndorsements(profiles []*model.Profile) *Endorsements {
	e := &Endorsements{
		Skilled:   make(map[string]map[int64]*model.Skill),
		Counts:    make(map[string][]int),
		Endorsers: make(map[int64][]int64),
		Endorsees: make(map[int64][]int64),
	}

	for _, p := range profiles {
		if p == nil {
			continue
		}
		for i := range p.Skills {
			s := &p.Skills[i]
			name := normalize.Normalize(s.Name)
			if name == "" {
				continue
			}

			holders, ok := e.Skilled[name]
			if !ok {
				holders = make(map[int64]*model.Skill)
				e.Skilled[name] = holders
			}
			holders[p.ID] = s

			if s.EndorsementCount != 0 {
				e.Counts[name] = append(e.Counts[name], s.EndorsementCount)
			}

			for _, endorser := range s.Endorsers {
				e.Endorsers[endorser] = append(e.Endorsers[endorser], p.ID)
				e.Endorsees[p.ID] = append(e.Endorsees[p.ID], endorser)
			}
		}
	}

	for _, counts := range e.Counts {
		sort.Sort(sort.Reverse(sort.IntSlice(counts)))
	}
	return e
}

// IsSkilled reports whether profile id holds the normalized skill.
func (e *Endorsements) IsSkilled(skill string, id int64) bool {
	_, ok := e.Skilled[skill][id]
	return ok
}

// SuperEndorsementCount counts the endorsers that hold the normalized skill themselves.
func (e *Endorsements) SuperEndorsementCount(skill string, endorsers []int64) int {
	holders := e.Skilled[skill]
	if len(holders) == 0 {
		return 0
	}
	n := 0
	for _, id := range endorsers {
		if _, ok := holders[id]; ok {
			n++
		}
	}
	return n
}

// Annotate sets the percentile and super-endorsement count of every skill.
// It must only run while the snapshot is being prepared, before it is published.
func (e *Endorsements) Annotate(profiles []*model.Profile) {
	for _, p := range profiles {
		if p == nil {
			continue
		}
		for i := range p.Skills {
			s := &p.Skills[i]
			name := normalize.Normalize(s.Name)
			if _, ok := e.Skilled[name]; !ok {
				continue
			}
			s.Percentile = Percentile(e.Counts[name], s.EndorsementCount)
			s.SuperEndorsementCount = e.SuperEndorsementCount(name, s.Endorsers)
		}
	}
}

// Percentile buckets the rank of value within sortedDesc. Ranks in the top 5%
// use 5-point buckets, the others 10-point buckets; lower is better and the
// best bucket is 1. An empty distribution, a zero value or a value absent
// from the distribution yields PercentileNA.
func Percentile(sortedDesc []int, value int) model.Percentile {
	if len(sortedDesc) == 0 || value == 0 {
		return model.PercentileNA
	}

	idx := -1
	for i, v := range sortedDesc {
		if v == value {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.PercentileNA
	}

	p := float64(idx) / float64(len(sortedDesc))
	granularity := 10.0
	if p < 0.05 {
		granularity = 5
	}

	result := int(math.Ceil(p*100/granularity) * granularity)
	if result == 0 {
		result = 1
	}
	return model.Percentile(result)
}
