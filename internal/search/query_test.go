package search

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risseraka/matchmakr/model"
)

func TestParseParams(t *testing.T) {
	q := ParseParams(Params{
		"skills.name": {"Go, +Rust", "go"},
		"seniority":   {"10..5,x"},
		"id":          {"2,x,+3,2"},
		"savedSearch": {"a, b ,a"},
		"q":           {"skills.name:go  São"},
		"unknown":     {"x"},
		"name":        {" , "},
	})

	assert.Equal(t, model.Query{
		model.FieldSkills:      {"go", "+rust"},
		model.FieldSeniority:   {"5..10"},
		model.FieldID:          {"2", "+3"},
		model.FieldSavedSearch: {"a", "b"},
		model.FieldQ:           {"skills.name:go", "São"},
	}, q)
}

func TestQueryParamsRoundTrip(t *testing.T) {
	q := model.Query{model.FieldSkills: {"go"}, model.FieldLocation: {"+lisbon"}}

	assert.Equal(t, q, ParseParams(QueryParams(q)))
}

func TestParseQ(t *testing.T) {
	q := model.Query{model.FieldSkills: {"rust"}}

	needles := parseQ(q, []string{"skills.name:Go", "Acme", "acme", "foo:bar", "q:nested", "location:+Lisbon", "!!"})

	assert.Equal(t, []string{"acme"}, needles)
	assert.Equal(t, []string{"rust", "go"}, q[model.FieldSkills])
	assert.Equal(t, []string{"+lisbon"}, q[model.FieldLocation])
	assert.NotContains(t, q, model.FieldQ)
}

func TestVectorCompare(t *testing.T) {
	inf := math.Inf(1)
	tests := []struct {
		name string
		a, b Vector
		want int
	}{
		{"equal", Vector{1, 2}, Vector{1, 2}, 0},
		{"first element decides", Vector{2, 0}, Vector{1, 9}, 1},
		{"later element decides", Vector{1, 2}, Vector{1, 3}, -1},
		{"infinities tie", Vector{inf, 1}, Vector{inf, 1}, 0},
		{"infinity beats numbers", Vector{inf}, Vector{1e9}, 1},
		{"longer wins on common prefix", Vector{1, 0}, Vector{1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Compare(tt.b)
			switch {
			case tt.want > 0:
				assert.Positive(t, got)
			case tt.want < 0:
				assert.Negative(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestVectorJSON(t *testing.T) {
	v := Vector{1, math.Inf(1), 2.5, math.Inf(-1)}

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `[1,"Infinity",2.5,"-Infinity"]`, string(data))

	var back Vector
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, v, back)
}
