// Package skills builds the skill co-occurrence matrix of a dataset and answers
// related-skill queries over it.
package skills

import (
	"math"
	"sort"

	"github.com/risseraka/matchmakr/index"
	"github.com/risseraka/matchmakr/internal/normalize"
	"github.com/risseraka/matchmakr/model"
)

// Matrix is the co-occurrence matrix of skills held by more than one profile.
type Matrix struct {
	// Entries maps a normalized skill to its co-occurrence tally.
	Entries map[string]*model.SkillCooccurrence
	// Keys lists the matrix skills by profile count descending.
	Keys []string
	// TopIndex maps a skill to the skills whose top co-occurring skill it is.
	TopIndex map[string][]string

	profileCounts map[string]int
}

// TopSkill is a skill whose most frequent companion is the queried skill.
type TopSkill struct {
	Name                  string `json:"name"`
	Count                 int    `json:"count"`
	TotalProfilesWithName int    `json:"totalProfilesWithName"`
	Percentage            int    `json:"percentage"`
}

// BuildMatrix tallies, for every skill held by at least two profiles, the other
// skills of the profiles holding it. Each profile contributes at most once per
// skill pair, which keeps counts symmetric. The top companion only changes on
// a strictly greater count, so the first skill to reach the maximum wins ties.
func BuildMatrix(skillsMap *index.FieldMap) *Matrix {
	m := &Matrix{
		Entries:       make(map[string]*model.SkillCooccurrence),
		TopIndex:      make(map[string][]string),
		profileCounts: make(map[string]int),
	}

	for _, entry := range skillsMap.SortedByCount() {
		m.profileCounts[entry.Name] = entry.Count
		if entry.Count <= 1 {
			continue
		}
		m.Keys = append(m.Keys, entry.Name)

		s1 := entry.Name
		co := &model.SkillCooccurrence{Skills: make(map[string]int)}
		for _, p := range entry.Items {
			for _, s2 := range distinctSkills(p) {
				if s2 == s1 {
					continue
				}
				count := co.Skills[s2] + 1
				co.Skills[s2] = count
				if count > co.Top.Count {
					co.Top = model.SkillCount{Name: s2, Count: count}
				}
			}
		}
		co.Keys = sortedKeys(co.Skills)
		m.Entries[s1] = co
	}

	for _, s1 := range m.Keys {
		if top := m.Entries[s1].Top.Name; top != "" {
			m.TopIndex[top] = append(m.TopIndex[top], s1)
		}
	}
	return m
}

func distinctSkills(p *model.Profile) []string {
	out := make([]string, 0, len(p.Skills))
	seen := make(map[string]struct{}, len(p.Skills))
	for _, s := range p.Skills {
		name := normalize.Normalize(s.Name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// sortedKeys orders co-occurring skills by count descending, ties by name.
func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// RelatedSkills returns the skills co-occurring with name, most frequent first.
func (m *Matrix) RelatedSkills(name string) []model.SkillCount {
	co, ok := m.Entries[normalize.Normalize(name)]
	if !ok {
		return []model.SkillCount{}
	}
	out := make([]model.SkillCount, len(co.Keys))
	for i, k := range co.Keys {
		out[i] = model.SkillCount{Name: k, Count: co.Skills[k]}
	}
	return out
}

// TopSkills returns the skills whose top companion is name, ordered by how
// often they co-occur with it.
func (m *Matrix) TopSkills(name string) []TopSkill {
	key := normalize.Normalize(name)
	children := m.TopIndex[key]

	out := make([]TopSkill, 0, len(children))
	for _, child := range children {
		count := m.Entries[child].Skills[key]
		total := m.profileCounts[child]
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(count) / float64(total) * 100))
		}
		out = append(out, TopSkill{
			Name:                  child,
			Count:                 count,
			TotalProfilesWithName: total,
			Percentage:            pct,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Get returns the co-occurrence entry of a normalized skill.
func (m *Matrix) Get(name string) (*model.SkillCooccurrence, bool) {
	co, ok := m.Entries[name]
	return co, ok
}
