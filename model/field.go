package model

import (
	"github.com/risseraka/matchmakr/internal/errors"
)

// Field enumerates the query fields and field collections of a dataset.
type Field string

const (
	FieldSavedSearch Field = "savedSearch"
	FieldSimilar     Field = "similar"
	FieldQ           Field = "q"
	FieldID          Field = "id"
	FieldName        Field = "name"
	FieldLocation    Field = "location"
	FieldSeniority   Field = "seniority"
	FieldSkills      Field = "skills.name"
	FieldCompanies   Field = "positions.companyName"
	FieldTitles      Field = "positions.title"
)

// ScoredFields lists the fields that filter and score, in priority order.
// The composite score vector of a hit concatenates field vectors in this order.
var ScoredFields = []Field{
	FieldSkills,
	FieldCompanies,
	FieldTitles,
	FieldID,
	FieldName,
	FieldLocation,
	FieldSeniority,
	FieldQ,
}

// MapFields lists the fields that get an aggregate field map at load time.
var MapFields = []Field{
	FieldName,
	FieldSeniority,
	FieldLocation,
	FieldSkills,
	FieldCompanies,
	FieldTitles,
}

// SuggestFields lists the fields scanned for suggestions.
var SuggestFields = []Field{
	FieldName,
	FieldLocation,
	FieldSkills,
	FieldCompanies,
	FieldTitles,
}

var knownFields = map[Field]struct{}{
	FieldSavedSearch: {},
	FieldSimilar:     {},
	FieldQ:           {},
	FieldID:          {},
	FieldName:        {},
	FieldLocation:    {},
	FieldSeniority:   {},
	FieldSkills:      {},
	FieldCompanies:   {},
	FieldTitles:      {},
}

// ParseField resolves a field name, returning an UnknownFieldError for anything not enumerated.
func ParseField(name string) (Field, error) {
	f := Field(name)
	if _, ok := knownFields[f]; !ok {
		return "", errors.NewUnknownFieldError(name)
	}
	return f, nil
}

// ParseMapField resolves a field name that must carry a field map.
func ParseMapField(name string) (Field, error) {
	f, err := ParseField(name)
	if err != nil {
		return "", err
	}
	if !f.HasMap() {
		return "", errors.NewUnknownFieldError(name)
	}
	return f, nil
}

// HasMap reports whether f is aggregated into a field map.
func (f Field) HasMap() bool {
	for _, m := range MapFields {
		if m == f {
			return true
		}
	}
	return false
}

// IsModifier reports whether f rewrites the query instead of filtering it.
func (f Field) IsModifier() bool {
	return f == FieldSavedSearch || f == FieldSimilar
}

func (f Field) String() string {
	return string(f)
}
