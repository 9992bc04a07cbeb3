package index

import (
	"strconv"

	"github.com/risseraka/matchmakr/internal/normalize"
	"github.com/risseraka/matchmakr/model"
)

// Accessor extracts the raw values of one field from a profile.
// Accessors never panic: a nil profile or a missing nested record yields no values.
type Accessor func(p *model.Profile) []string

// accessorSpec binds a field to its accessor and key function.
// Text fields key on their normalized value; numeric fields key on their formatted value.
type accessorSpec struct {
	values Accessor
	key    func(string) string
}

func identity(s string) string { return s }

var accessors = map[model.Field]accessorSpec{
	model.FieldID: {
		values: func(p *model.Profile) []string {
			if p == nil {
				return nil
			}
			return []string{strconv.FormatInt(p.ID, 10)}
		},
		key: identity,
	},
	model.FieldName: {
		values: func(p *model.Profile) []string {
			if p == nil {
				return nil
			}
			return []string{p.Name}
		},
		key: normalize.Normalize,
	},
	model.FieldLocation: {
		values: func(p *model.Profile) []string {
			if p == nil {
				return nil
			}
			return []string{p.Location}
		},
		key: normalize.Normalize,
	},
	model.FieldSeniority: {
		values: func(p *model.Profile) []string {
			if p == nil || !p.HasSeniority {
				return nil
			}
			return []string{SeniorityKey(p.Seniority)}
		},
		key: identity,
	},
	model.FieldSkills: {
		values: func(p *model.Profile) []string {
			if p == nil {
				return nil
			}
			out := make([]string, 0, len(p.Skills))
			for _, s := range p.Skills {
				out = append(out, s.Name)
			}
			return out
		},
		key: normalize.Normalize,
	},
	model.FieldCompanies: {
		values: func(p *model.Profile) []string {
			if p == nil {
				return nil
			}
			out := make([]string, 0, len(p.Positions))
			for _, pos := range p.Positions {
				out = append(out, pos.CompanyName)
			}
			return out
		},
		key: normalize.Normalize,
	},
	model.FieldTitles: {
		values: func(p *model.Profile) []string {
			if p == nil {
				return nil
			}
			out := make([]string, 0, len(p.Positions))
			for _, pos := range p.Positions {
				out = append(out, pos.Title)
			}
			return out
		},
		key: normalize.Normalize,
	},
}

// AccessorFor returns the accessor of an indexable field.
func AccessorFor(f model.Field) (Accessor, bool) {
	spec, ok := accessors[f]
	if !ok {
		return nil, false
	}
	return spec.values, true
}

// Keys returns the distinct non-empty index keys of field f for p, in field order.
func Keys(p *model.Profile, f model.Field) []string {
	spec, ok := accessors[f]
	if !ok {
		return nil
	}
	raw := spec.values(p)
	if len(raw) == 0 {
		return nil
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, v := range raw {
		k := spec.key(v)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Key normalizes a lookup value the same way field f keys its index.
func Key(f model.Field, value string) string {
	spec, ok := accessors[f]
	if !ok {
		return normalize.Normalize(value)
	}
	return spec.key(value)
}

// SeniorityKey formats a seniority in years as its one-decimal bucket key.
func SeniorityKey(years float64) string {
	return strconv.FormatFloat(years, 'f', 1, 64)
}
