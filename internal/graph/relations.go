package graph

import (
	"sort"

	"github.com/risseraka/matchmakr/model"
)

// Relations is the relation list of a dataset, sorted by network size
// descending, with an id index over it.
type Relations struct {
	List []model.Relation
	byID map[int64]int
}

// Get returns the relation of id.
func (r *Relations) Get(id int64) (model.Relation, bool) {
	if r == nil {
		return model.Relation{}, false
	}
	i, ok := r.byID[id]
	if !ok {
		return model.Relation{}, false
	}
	return r.List[i], true
}

// Len returns the number of relations.
func (r *Relations) Len() int {
	if r == nil {
		return 0
	}
	return len(r.List)
}

// BuildRelations computes one relation per entity id appearing as a profile,
// an endorser or an endorsee.
//
// Pass 1 derives endorsers, endorsees, connecteds and friends of each id and
// indexes the result. Pass 2 keeps, as the network of an id, its connecteds
// that share at least one connected with it. An entity never counts as its
// own connection.
//
// Pass 2 is quadratic in node degree: every connected of every id has its own
// connecteds scanned. This is fine for graphs of a few thousand nodes and is
// the scaling limit of the builder.
func BuildRelations(e *Endorsements, profiles []*model.Profile) *Relations {
	names := make(map[int64]string, len(profiles))
	idSet := make(map[int64]struct{}, len(profiles)+len(e.Endorsers)+len(e.Endorsees))
	for _, p := range profiles {
		if p == nil {
			continue
		}
		names[p.ID] = p.Name
		idSet[p.ID] = struct{}{}
	}
	for id := range e.Endorsers {
		idSet[id] = struct{}{}
	}
	for id := range e.Endorsees {
		idSet[id] = struct{}{}
	}

	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rels := &Relations{
		List: make([]model.Relation, len(ids)),
		byID: make(map[int64]int, len(ids)),
	}

	// pass 1
	connectedSets := make(map[int64]map[int64]struct{}, len(ids))
	for i, id := range ids {
		endorsers := uniqueWithout(e.Endorsees[id], id)
		endorsees := uniqueWithout(e.Endorsers[id], id)
		connecteds := union(endorsers, endorsees)

		rels.List[i] = model.Relation{
			ID:         id,
			Name:       names[id],
			Count:      len(connecteds),
			Friends:    intersection(endorsers, endorsees),
			Endorsers:  endorsers,
			Endorsees:  endorsees,
			Connecteds: connecteds,
		}
		rels.byID[id] = i
		connectedSets[id] = toSet(connecteds)
	}

	// pass 2
	for i := range rels.List {
		r := &rels.List[i]
		own := connectedSets[r.ID]
		network := make([]int64, 0, len(r.Connecteds))
		for _, p := range r.Connecteds {
			if sharesAny(connectedSets[p], own) {
				network = append(network, p)
			}
		}
		r.Network = network
	}

	sort.SliceStable(rels.List, func(i, j int) bool {
		return len(rels.List[i].Network) > len(rels.List[j].Network)
	})
	for i, r := range rels.List {
		rels.byID[r.ID] = i
	}
	return rels
}

func uniqueWithout(ids []int64, self int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id == self {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func union(a, b []int64) []int64 {
	out := make([]int64, 0, len(a)+len(b))
	seen := make(map[int64]struct{}, len(a)+len(b))
	for _, list := range [][]int64{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func intersection(a, b []int64) []int64 {
	in := toSet(b)
	out := make([]int64, 0)
	for _, id := range a {
		if _, ok := in[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// sharesAny iterates the smaller set.
func sharesAny(a, b map[int64]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for id := range a {
		if _, ok := b[id]; ok {
			return true
		}
	}
	return false
}
