package model

// Relation describes the endorsement neighbourhood of one entity id.
// The id is either a profile id or a "ghost" id that only appears as an endorser.
type Relation struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name,omitempty"`
	Count      int     `json:"count"`
	Friends    []int64 `json:"friends"`
	Endorsers  []int64 `json:"endorsers"`
	Endorsees  []int64 `json:"endorsees"`
	Connecteds []int64 `json:"connecteds"`
	Network    []int64 `json:"network"`
}

// SkillCooccurrence holds, for one skill, the tally of skills seen on the same profiles.
type SkillCooccurrence struct {
	Skills map[string]int `json:"skills"`
	Top    SkillCount     `json:"top"`
	// Keys is the sorted set of co-occurring skill names.
	Keys []string `json:"keys"`
}
