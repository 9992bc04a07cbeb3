package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Profile is one professional profile of a dataset snapshot.
// Profiles are owned by the snapshot and never mutated once it is published;
// query-scoped annotations live in search hits instead.
type Profile struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Location   string     `json:"location,omitempty"`
	ProfileURL string     `json:"profileUrl,omitempty"`
	PictureURL string     `json:"pictureUrl,omitempty"`
	Skills     []Skill    `json:"skills"`
	Positions  []Position `json:"positions"`

	// Seniority is expressed in years, derived from the earliest position start.
	Seniority    float64 `json:"seniority"`
	HasSeniority bool    `json:"-"`
}

// Skill is a named skill of a profile with the ids of the profiles that endorsed it.
// Endorsers may reference ids absent from the dataset; those are kept as raw ids.
type Skill struct {
	Name                  string     `json:"name"`
	EndorsementCount      int        `json:"endorsementCount"`
	Endorsers             []int64    `json:"endorsers"`
	Percentile            Percentile `json:"percentile"`
	SuperEndorsementCount int        `json:"superEndorsementCount,omitempty"`
}

// Position is an employment position. Dates are unix milliseconds; a nil EndDate means current.
type Position struct {
	CompanyName string `json:"companyName"`
	Title       string `json:"title"`
	Location    string `json:"locationName,omitempty"`
	StartDate   int64  `json:"startDate,omitempty"`
	EndDate     *int64 `json:"endDate,omitempty"`

	// Seniority is the tenure of the position in years.
	Seniority float64 `json:"seniority"`
}

// Percentile is a bucketed rank of an endorsement count within its skill distribution.
// Valid values are 1..100; PercentileNA marks an empty distribution or a zero count.
type Percentile int

const PercentileNA Percentile = 0

func (p Percentile) String() string {
	if p == PercentileNA {
		return "N/A"
	}
	return strconv.Itoa(int(p))
}

func (p Percentile) MarshalJSON() ([]byte, error) {
	if p == PercentileNA {
		return []byte(`"N/A"`), nil
	}
	return []byte(strconv.Itoa(int(p))), nil
}

func (p *Percentile) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = PercentileNA
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = Percentile(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("percentile: %w", err)
	}
	if s == "N/A" || s == "" {
		*p = PercentileNA
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("percentile %q: %w", s, err)
	}
	*p = Percentile(n)
	return nil
}

// SkillCount pairs a normalized skill name with a count.
type SkillCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
