package search

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/risseraka/matchmakr/model"
)

// Params are the raw request parameters of a query, shaped like url.Values.
type Params map[string][]string

// Vector is a score vector compared lexicographically, larger first.
type Vector []float64

// Compare returns a positive number when v ranks before o, negative when
// after, and 0 when they tie. Equal infinities tie.
func (v Vector) Compare(o Vector) int {
	n := len(v)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		if v[i] == o[i] {
			continue
		}
		if v[i] > o[i] {
			return 1
		}
		return -1
	}
	return len(v) - len(o)
}

// MarshalJSON renders infinities as the strings "Infinity" and "-Infinity".
func (v Vector) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 8*len(v)+2)
	buf = append(buf, '[')
	for i, f := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		switch {
		case math.IsInf(f, 1):
			buf = append(buf, `"Infinity"`...)
		case math.IsInf(f, -1):
			buf = append(buf, `"-Infinity"`...)
		case math.IsNaN(f):
			buf = append(buf, "null"...)
		default:
			buf = strconv.AppendFloat(buf, f, 'f', -1, 64)
		}
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON accepts the output of MarshalJSON.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Vector, len(raw))
	for i, r := range raw {
		switch string(r) {
		case `"Infinity"`:
			out[i] = math.Inf(1)
		case `"-Infinity"`:
			out[i] = math.Inf(-1)
		case "null":
			out[i] = math.NaN()
		default:
			if err := json.Unmarshal(r, &out[i]); err != nil {
				return err
			}
		}
	}
	*v = out
	return nil
}

// Hit is a query-scoped view of one matching profile. The profile itself is
// shared with the dataset and must not be modified; everything the query
// derives lives on the hit.
type Hit struct {
	Profile *model.Profile           `json:"profile"`
	Matches map[model.Field][]string `json:"matches,omitempty"`
	Scores  map[model.Field]Vector   `json:"scores,omitempty"`
	Score   Vector                   `json:"score"`
}

// Result is the outcome of a query.
type Result struct {
	QueryID string `json:"query_id"`
	// Total is the number of profiles in the dataset.
	Total int `json:"total"`
	// Count is the number of hits, omitted when every profile matched.
	Count    *int          `json:"count,omitempty"`
	Results  []Hit         `json:"results"`
	Query    model.Query   `json:"query"`
	Template *SaveTemplate `json:"template,omitempty"`
	Took     int64         `json:"took"` // milliseconds
}

// Len returns the number of hits.
func (r *Result) Len() int {
	return len(r.Results)
}

// Reissue returns a copy of r for another caller of the same query. The copy
// gets a fresh QueryID and a zero Took; hits are shared.
func (r *Result) Reissue() *Result {
	out := *r
	out.QueryID = uuid.New().String()
	out.Took = 0
	return &out
}

// IDs returns the profile ids of the hits in rank order.
func (r *Result) IDs() []int64 {
	ids := make([]int64, len(r.Results))
	for i, h := range r.Results {
		ids[i] = h.Profile.ID
	}
	return ids
}

// SaveTemplate describes the form that saves the executed query.
type SaveTemplate struct {
	Title      string         `json:"title"`
	Method     string         `json:"method"`
	Action     string         `json:"action"`
	Properties []TemplateProp `json:"properties"`
}

// TemplateProp is one property of a SaveTemplate.
type TemplateProp struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// SavedSearchesTable is the only persistence table saves may target.
const SavedSearchesTable = "search"

func newSaveTemplate(query model.Query) *SaveTemplate {
	value, err := json.Marshal(struct {
		Query model.Query `json:"query"`
	}{query})
	if err != nil {
		return nil
	}
	return &SaveTemplate{
		Title:  "Save search as",
		Method: "post",
		Action: "/save",
		Properties: []TemplateProp{
			{Name: "table", Type: "hidden", Value: SavedSearchesTable},
			{Name: "key", Type: "text"},
			{Name: "value", Type: "hidden", Value: string(value)},
		},
	}
}
