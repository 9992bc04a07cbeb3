package graph

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/risseraka/matchmakr/internal/testing"
	"github.com/risseraka/matchmakr/model"
)

func TestBuildEndorsements(t *testing.T) {
	profiles := testutil.Pointers(testutil.SampleProfiles())

	e := BuildEndorsements(profiles)

	assert.True(t, e.IsSkilled("go", testutil.AliceID))
	assert.True(t, e.IsSkilled("go", testutil.BobID))
	assert.False(t, e.IsSkilled("go", testutil.CarolID))
	assert.True(t, e.IsSkilled("rust", testutil.CarolID))

	assert.Equal(t, []int{5, 2}, e.Counts["go"])
	assert.Equal(t, []int{1}, e.Counts["rust"])

	assert.Equal(t, []int64{testutil.CarolID, testutil.AliceID}, e.Endorsers[testutil.BobID])
	assert.Equal(t, []int64{testutil.BobID}, e.Endorsers[testutil.AliceID])
	assert.Equal(t, []int64{testutil.AliceID}, e.Endorsers[10], "endorsers outside the dataset are kept")
	assert.Equal(t, []int64{testutil.AliceID, 14}, e.Endorsees[testutil.BobID])
}

func TestBuildEndorsementsSkipsZeroCounts(t *testing.T) {
	profiles := []*model.Profile{
		{ID: 1, Skills: []model.Skill{{Name: "Go"}}},
		{ID: 2, Skills: []model.Skill{{Name: "Go", EndorsementCount: 3}}},
	}

	e := BuildEndorsements(profiles)

	assert.Equal(t, []int{3}, e.Counts["go"])
	assert.Len(t, e.Skilled["go"], 2)
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		value  int
		want   model.Percentile
	}{
		{"empty distribution", nil, 3, model.PercentileNA},
		{"zero value", []int{3, 2}, 0, model.PercentileNA},
		{"absent value", []int{3, 2}, 7, model.PercentileNA},
		{"top rank", []int{5, 2}, 5, 1},
		{"half way", []int{5, 2}, 2, 50},
		{"top five percent uses 5-point buckets", seq(100), 97, 5},
		{"beyond five percent uses 10-point buckets", seq(100), 90, 10},
		{"last of many", seq(100), 1, 100},
		{"duplicates rank at first occurrence", []int{4, 4, 4, 1}, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentile(tt.counts, tt.value))
		})
	}
}

// seq returns n..1.
func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = n - i
	}
	return out
}

func TestAnnotate(t *testing.T) {
	profiles := testutil.Pointers(testutil.SampleProfiles())
	e := BuildEndorsements(profiles)

	e.Annotate(profiles)

	byID := make(map[int64]*model.Profile)
	for _, p := range profiles {
		byID[p.ID] = p
	}

	alice := byID[testutil.AliceID].Skills[0]
	assert.Equal(t, model.Percentile(1), alice.Percentile)
	assert.Equal(t, 1, alice.SuperEndorsementCount, "Bob holds Go")

	bob := byID[testutil.BobID].Skills[0]
	assert.Equal(t, model.Percentile(50), bob.Percentile)
	assert.Equal(t, 1, bob.SuperEndorsementCount, "Alice holds Go")

	carol := byID[testutil.CarolID].Skills[0]
	assert.Equal(t, 0, carol.SuperEndorsementCount, "Bob does not hold Rust")
}

func TestFriendsAreMutual(t *testing.T) {
	profiles := testutil.Pointers(testutil.SampleProfiles())
	rels := BuildRelations(BuildEndorsements(profiles), profiles)

	alice, ok := rels.Get(testutil.AliceID)
	require.True(t, ok)
	assert.Contains(t, alice.Friends, testutil.BobID)
	assert.Equal(t, "Alice", alice.Name)

	bob, ok := rels.Get(testutil.BobID)
	require.True(t, ok)
	assert.Contains(t, bob.Friends, testutil.AliceID)
	assert.NotContains(t, bob.Friends, testutil.CarolID, "Bob endorsed Carol but not the reverse")
	assert.ElementsMatch(t, []int64{testutil.AliceID, 14, testutil.CarolID}, bob.Connecteds)
	assert.Equal(t, 3, bob.Count)
}

func TestRelationsIncludeGhostIDs(t *testing.T) {
	profiles := testutil.Pointers(testutil.SampleProfiles())
	rels := BuildRelations(BuildEndorsements(profiles), profiles)

	ghost, ok := rels.Get(10)
	require.True(t, ok)
	assert.Empty(t, ghost.Name)
	assert.Equal(t, []int64{testutil.AliceID}, ghost.Endorsees)
	assert.Empty(t, ghost.Endorsers)

	// 3 profiles plus endorsers 10, 11, 12, 13 and 14
	assert.Equal(t, 8, rels.Len())
}

func TestNetworkKeepsConnectionsSharingAConnection(t *testing.T) {
	// 1 and 2 and 3 form a triangle; 4 only knows 1.
	profiles := []*model.Profile{
		{ID: 1, Skills: []model.Skill{{Name: "Go", Endorsers: []int64{2, 4}}}},
		{ID: 2, Skills: []model.Skill{{Name: "Go", Endorsers: []int64{3}}}},
		{ID: 3, Skills: []model.Skill{{Name: "Go", Endorsers: []int64{1}}}},
	}

	rels := BuildRelations(BuildEndorsements(profiles), profiles)

	one, _ := rels.Get(1)
	assert.ElementsMatch(t, []int64{2, 4, 3}, one.Connecteds)
	assert.ElementsMatch(t, []int64{2, 3}, one.Network)

	four, _ := rels.Get(4)
	assert.Equal(t, []int64{1}, four.Connecteds)
	assert.Empty(t, four.Network)

	assert.Len(t, rels.List[0].Network, 2)
	assert.Equal(t, int64(4), rels.List[len(rels.List)-1].ID)
}

func TestSelfEndorsementIsIgnored(t *testing.T) {
	profiles := []*model.Profile{
		{ID: 1, Skills: []model.Skill{{Name: "Go", Endorsers: []int64{1, 2}}}},
	}

	rels := BuildRelations(BuildEndorsements(profiles), profiles)

	one, _ := rels.Get(1)
	assert.Equal(t, []int64{2}, one.Connecteds)
	assert.Empty(t, one.Friends)
}

// genProfiles generates eight profiles whose skills are endorsed by ids 1 to 12,
// so that some endorsers are profiles and some are ghosts.
func genProfiles() gopter.Gen {
	names := []string{"Go", "Rust", "SQL"}
	return gen.SliceOfN(8, gen.SliceOf(gen.Int64Range(1, 12))).Map(func(endorsements [][]int64) []*model.Profile {
		out := make([]*model.Profile, len(endorsements))
		for i, endorsers := range endorsements {
			p := &model.Profile{ID: int64(i + 1)}
			for j, endorser := range endorsers {
				p.Skills = append(p.Skills, model.Skill{
					Name:             names[(i+j)%len(names)],
					EndorsementCount: j + 1,
					Endorsers:        []int64{endorser},
				})
			}
			out[i] = p
		}
		return out
	})
}

func TestGraphProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("every endorsement appears in both adjacency maps", prop.ForAll(
		func(profiles []*model.Profile) bool {
			e := BuildEndorsements(profiles)
			for _, p := range profiles {
				for _, s := range p.Skills {
					for _, endorser := range s.Endorsers {
						if !containsID(e.Endorsers[endorser], p.ID) || !containsID(e.Endorsees[p.ID], endorser) {
							return false
						}
					}
				}
			}
			return true
		},
		genProfiles(),
	))

	properties.Property("relations are sorted by network size", prop.ForAll(
		func(profiles []*model.Profile) bool {
			rels := BuildRelations(BuildEndorsements(profiles), profiles)
			for i := 0; i+1 < len(rels.List); i++ {
				if len(rels.List[i].Network) < len(rels.List[i+1].Network) {
					return false
				}
			}
			return true
		},
		genProfiles(),
	))

	properties.Property("friends are symmetric", prop.ForAll(
		func(profiles []*model.Profile) bool {
			rels := BuildRelations(BuildEndorsements(profiles), profiles)
			for _, r := range rels.List {
				for _, f := range r.Friends {
					other, ok := rels.Get(f)
					if !ok || !containsID(other.Friends, r.ID) {
						return false
					}
				}
			}
			return true
		},
		genProfiles(),
	))

	properties.TestingRun(t)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
