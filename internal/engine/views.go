package engine

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/risseraka/matchmakr/index"
	"github.com/risseraka/matchmakr/internal/errors"
	"github.com/risseraka/matchmakr/internal/indexing"
	"github.com/risseraka/matchmakr/internal/normalize"
	"github.com/risseraka/matchmakr/model"
)

// ProfileRef points at an entity id. It renders as a short profile object
// when the id resolves in the dataset and as the bare id otherwise.
type ProfileRef struct {
	ID            int64
	Profile       *model.Profile
	SuperEndorser bool
}

func (r ProfileRef) MarshalJSON() ([]byte, error) {
	if r.Profile == nil {
		return json.Marshal(r.ID)
	}
	return json.Marshal(struct {
		ID            int64  `json:"id"`
		Name          string `json:"name"`
		Location      string `json:"location,omitempty"`
		PictureURL    string `json:"pictureUrl,omitempty"`
		SuperEndorser bool   `json:"superEndorser,omitempty"`
	}{r.Profile.ID, r.Profile.Name, r.Profile.Location, r.Profile.PictureURL, r.SuperEndorser})
}

// SkillView is a skill with its endorsers resolved.
type SkillView struct {
	model.Skill
	Endorsers []ProfileRef `json:"endorsers"`
}

// RelationsView is the resolved neighbourhood of a profile.
type RelationsView struct {
	Friends   []ProfileRef `json:"friends"`
	Endorsers []ProfileRef `json:"endorsers"`
	Endorsees []ProfileRef `json:"endorsees"`
	Network   []ProfileRef `json:"network"`
}

// ProfileView is the detail view of one profile, built per call.
type ProfileView struct {
	*model.Profile
	Skills    []SkillView   `json:"skills"`
	Relations RelationsView `json:"relations"`
}

// FieldListing lists the entries of a field map.
type FieldListing struct {
	Field model.Field      `json:"field"`
	Total int              `json:"total"`
	Count int              `json:"count"`
	Items []index.MapEntry `json:"items"`
}

// RelatedItem is one aggregated value of a related field.
type RelatedItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RelatedListing aggregates a related field over the profiles holding one value.
type RelatedListing struct {
	Field   model.Field   `json:"field"`
	Name    string        `json:"name"`
	Related model.Field   `json:"related"`
	Count   int           `json:"count"`
	Items   []RelatedItem `json:"items"`
}

// GetProfile returns the detail view of profile id.
func (e *Engine) GetProfile(ctx context.Context, dataset string, id int64) (*ProfileView, error) {
	ds, err := e.Dataset(ctx, dataset)
	if err != nil {
		return nil, err
	}
	p, ok := ds.Profile(id)
	if !ok {
		return nil, errors.NewProfileNotFoundError(id, dataset)
	}

	view := &ProfileView{
		Profile: p,
		Skills:  make([]SkillView, len(p.Skills)),
	}
	for i, s := range p.Skills {
		skill := normalize.Normalize(s.Name)
		endorsers := resolve(ds, s.Endorsers)
		for j := range endorsers {
			endorsers[j].SuperEndorser = endorsers[j].Profile != nil && ds.Endorsements.IsSkilled(skill, endorsers[j].ID)
		}
		view.Skills[i] = SkillView{Skill: s, Endorsers: endorsers}
	}

	rel, _ := ds.Relations.Get(id)
	view.Relations = RelationsView{
		Friends:   resolve(ds, rel.Friends),
		Endorsers: resolve(ds, rel.Endorsers),
		Endorsees: resolve(ds, rel.Endorsees),
		Network:   resolve(ds, rel.Network),
	}
	return view, nil
}

func resolve(ds *indexing.Dataset, ids []int64) []ProfileRef {
	refs := make([]ProfileRef, len(ids))
	for i, id := range ids {
		refs[i].ID = id
		if p, ok := ds.Profile(id); ok {
			refs[i].Profile = p
		}
	}
	return refs
}

// MapField lists the values of a field, most frequent first. A non-empty q
// keeps the values containing it.
func (e *Engine) MapField(ctx context.Context, dataset, field, q string) (*FieldListing, error) {
	f, err := model.ParseMapField(field)
	if err != nil {
		return nil, err
	}
	ds, err := e.Dataset(ctx, dataset)
	if err != nil {
		return nil, err
	}
	m, err := ds.Map(f)
	if err != nil {
		return nil, err
	}

	items := m.Filter(q)
	if items == nil {
		items = []index.MapEntry{}
	}
	return &FieldListing{
		Field: f,
		Total: m.Len(),
		Count: len(items),
		Items: items,
	}, nil
}

// Related aggregates the related field over the profiles holding name in field.
// Skills related to a skill come from the co-occurrence matrix.
func (e *Engine) Related(ctx context.Context, dataset, field, name, related string) (*RelatedListing, error) {
	f, err := model.ParseMapField(field)
	if err != nil {
		return nil, err
	}
	rf, err := model.ParseMapField(related)
	if err != nil {
		return nil, err
	}
	ds, err := e.Dataset(ctx, dataset)
	if err != nil {
		return nil, err
	}
	m, err := ds.Map(f)
	if err != nil {
		return nil, err
	}
	entry, ok := m.Entry(index.Key(f, name))
	if !ok {
		return nil, errors.NewValueNotFoundError(string(f), name)
	}

	var items []RelatedItem
	if f == model.FieldSkills && rf == model.FieldSkills {
		for _, sc := range ds.Skills.RelatedSkills(entry.Name) {
			items = append(items, RelatedItem{Name: sc.Name, Count: sc.Count})
		}
	} else {
		items = aggregate(entry.Items, rf)
	}
	if items == nil {
		items = []RelatedItem{}
	}

	return &RelatedListing{
		Field:   f,
		Name:    entry.Name,
		Related: rf,
		Count:   len(items),
		Items:   items,
	}, nil
}

// aggregate counts, per distinct key of f, the profiles holding it.
func aggregate(profiles []*model.Profile, f model.Field) []RelatedItem {
	counts := make(map[string]int)
	var order []string
	for _, p := range profiles {
		for _, k := range index.Keys(p, f) {
			if _, ok := counts[k]; !ok {
				order = append(order, k)
			}
			counts[k]++
		}
	}

	items := make([]RelatedItem, len(order))
	for i, k := range order {
		items[i] = RelatedItem{Name: k, Count: counts[k]}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Name < items[j].Name
	})
	return items
}
