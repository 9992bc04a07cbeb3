// Package fulltext answers substring queries over a flattened representation
// of every profile. Two strategies exist: plain matching, and capture matching
// which also reports which field matched each needle.
package fulltext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/risseraka/matchmakr/internal/normalize"
	"github.com/risseraka/matchmakr/model"
)

const (
	StrategyPlain   = "plain"
	StrategyCapture = "capture"
)

// DefaultExclude lists the leaves left out of the flattened text.
var DefaultExclude = []string{"profileUrl", "pictureUrl"}

// Capture records one field value matched by a needle.
type Capture struct {
	Needle string `json:"needle"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

// Match is a profile whose flattened text contains every needle.
type Match struct {
	Profile  *model.Profile
	Captures []Capture
}

// Searcher is a free-text search strategy over a fixed profile list.
type Searcher interface {
	// Search returns, in snapshot order, the profiles containing every needle.
	// Needles are normalized before matching.
	Search(needles []string) []Match
	Strategy() string
}

// New builds the searcher of the given strategy.
func New(strategy string, profiles []*model.Profile, exclude []string) (Searcher, error) {
	switch strategy {
	case "", StrategyPlain:
		return NewPlain(profiles, exclude), nil
	case StrategyCapture:
		return NewCapture(profiles, exclude), nil
	default:
		return nil, fmt.Errorf("unknown search strategy '%s'", strategy)
	}
}

type leaf struct {
	field string
	value string
}

// flatten lists the scalar text leaves of p under their field path,
// normalized, skipping excluded paths and empty values.
func flatten(p *model.Profile, exclude map[string]struct{}) []leaf {
	if p == nil {
		return nil
	}
	var leaves []leaf
	add := func(field, value string) {
		if _, skip := exclude[field]; skip {
			return
		}
		if v := normalize.Normalize(value); v != "" {
			leaves = append(leaves, leaf{field: field, value: v})
		}
	}

	add("id", strconv.FormatInt(p.ID, 10))
	add("name", p.Name)
	add("location", p.Location)
	add("profileUrl", p.ProfileURL)
	add("pictureUrl", p.PictureURL)
	for _, s := range p.Skills {
		add("skills.name", s.Name)
	}
	for _, pos := range p.Positions {
		add("positions.companyName", pos.CompanyName)
		add("positions.title", pos.Title)
		add("positions.locationName", pos.Location)
	}
	return leaves
}

func excludeSet(exclude []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		set[e] = struct{}{}
	}
	return set
}

func joinLeaves(leaves []leaf) string {
	values := make([]string, len(leaves))
	for i, l := range leaves {
		values[i] = l.value
	}
	return strings.Join(values, " ")
}

func normalizeNeedles(needles []string) []string {
	out := make([]string, 0, len(needles))
	for _, n := range needles {
		if k := normalize.Normalize(n); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// PlainSearcher AND-matches needles against one string per profile.
type PlainSearcher struct {
	profiles []*model.Profile
	stringed []string
}

// NewPlain flattens every profile once.
func NewPlain(profiles []*model.Profile, exclude []string) *PlainSearcher {
	ex := excludeSet(exclude)
	s := &PlainSearcher{
		profiles: profiles,
		stringed: make([]string, len(profiles)),
	}
	for i, p := range profiles {
		s.stringed[i] = joinLeaves(flatten(p, ex))
	}
	return s
}

func (s *PlainSearcher) Strategy() string { return StrategyPlain }

func (s *PlainSearcher) Search(needles []string) []Match {
	needles = normalizeNeedles(needles)

	var out []Match
	for i, text := range s.stringed {
		if containsAll(text, needles) {
			out = append(out, Match{Profile: s.profiles[i]})
		}
	}
	return out
}

func containsAll(text string, needles []string) bool {
	for _, n := range needles {
		if !strings.Contains(text, n) {
			return false
		}
	}
	return true
}

// CaptureSearcher matches like PlainSearcher and additionally scans each field
// leaf with a per-needle pattern to report field:value captures.
type CaptureSearcher struct {
	plain  *PlainSearcher
	leaves [][]leaf
}

// NewCapture flattens every profile once, keeping field paths.
func NewCapture(profiles []*model.Profile, exclude []string) *CaptureSearcher {
	ex := excludeSet(exclude)
	s := &CaptureSearcher{
		plain: &PlainSearcher{
			profiles: profiles,
			stringed: make([]string, len(profiles)),
		},
		leaves: make([][]leaf, len(profiles)),
	}
	for i, p := range profiles {
		leaves := flatten(p, ex)
		s.leaves[i] = leaves
		s.plain.stringed[i] = joinLeaves(leaves)
	}
	return s
}

func (s *CaptureSearcher) Strategy() string { return StrategyCapture }

func (s *CaptureSearcher) Search(needles []string) []Match {
	needles = normalizeNeedles(needles)

	patterns := make([]*regexp.Regexp, len(needles))
	for i, n := range needles {
		patterns[i] = regexp.MustCompile(regexp.QuoteMeta(n))
	}

	var out []Match
	for i, text := range s.plain.stringed {
		if !containsAll(text, needles) {
			continue
		}
		m := Match{Profile: s.plain.profiles[i]}
		for j, re := range patterns {
			for _, l := range s.leaves[i] {
				if re.MatchString(l.value) {
					m.Captures = append(m.Captures, Capture{Needle: needles[j], Field: l.field, Value: l.value})
				}
			}
		}
		out = append(out, m)
	}
	return out
}
