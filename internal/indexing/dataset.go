package indexing

import (
	"strconv"
	"time"

	"github.com/risseraka/matchmakr/index"
	"github.com/risseraka/matchmakr/internal/errors"
	"github.com/risseraka/matchmakr/internal/fulltext"
	"github.com/risseraka/matchmakr/internal/graph"
	"github.com/risseraka/matchmakr/internal/skills"
	"github.com/risseraka/matchmakr/model"
)

// Dataset is the immutable bundle built from one named profile collection:
// the profiles, their field indices and maps, the endorsement graph, the
// relations, the skills matrix and the free-text searcher. A Dataset is never
// modified once published; a reload builds and publishes a new one.
type Dataset struct {
	Name       string
	Generation uint64
	LoadedAt   time.Time

	Profiles     []*model.Profile
	IDs          *index.FieldIndex
	Maps         map[model.Field]*index.FieldMap
	Endorsements *graph.Endorsements
	Relations    *graph.Relations
	Skills       *skills.Matrix
	Search       fulltext.Searcher

	Stages []StageTiming
}

// StageTiming is the duration of one preparation stage.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Summary counts the entries of every map of a dataset.
type Summary struct {
	Name       string         `json:"name"`
	Generation uint64         `json:"generation"`
	LoadedAt   time.Time      `json:"loaded_at"`
	Counts     map[string]int `json:"counts"`
}

// Profile returns the profile with the given id.
func (d *Dataset) Profile(id int64) (*model.Profile, bool) {
	return d.IDs.Get(strconv.FormatInt(id, 10))
}

// Map returns the field map of f, or an UnknownFieldError when f has none.
func (d *Dataset) Map(f model.Field) (*index.FieldMap, error) {
	m, ok := d.Maps[f]
	if !ok {
		return nil, errors.NewUnknownFieldError(string(f))
	}
	return m, nil
}

// Summary returns the size of every map.
func (d *Dataset) Summary() Summary {
	counts := map[string]int{
		"profiles":  len(d.Profiles),
		"relations": d.Relations.Len(),
	}
	for f, m := range d.Maps {
		counts[string(f)] = m.Len()
	}
	return Summary{
		Name:       d.Name,
		Generation: d.Generation,
		LoadedAt:   d.LoadedAt,
		Counts:     counts,
	}
}
