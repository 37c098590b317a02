package model

// Team is a transient group of participants produced by one planning run.
// Members are value snapshots; the registry stays authoritative.
type Team struct {
	Index     int           `json:"index"`
	Members   []Participant `json:"members"`
	AvgRating float64       `json:"avg_rating"`
	AvgSigma  float64       `json:"avg_sigma"`
	Chemistry float64       `json:"chemistry"`
}

// Size returns the number of members.
func (t Team) Size() int { return len(t.Members) }

// MemberIDs returns the member ids in roster order.
func (t Team) MemberIDs() []string {
	ids := make([]string, len(t.Members))
	for i, m := range t.Members {
		ids[i] = m.ID
	}
	return ids
}

// Matchup pairs two teams (by index) within a round.
type Matchup struct {
	Round   int     `json:"round"`
	TeamA   int     `json:"team_a"`
	TeamB   int     `json:"team_b"`
	Quality float64 `json:"quality"`
}

// Round is one slot of simultaneous matchups.
type Round struct {
	Number   int       `json:"number"`
	Matchups []Matchup `json:"matchups"`
	Byes     []int     `json:"byes,omitempty"`
	Repeat   bool      `json:"repeat,omitempty"` // pairings reused from an earlier round
}

// Schedule is an ordered sequence of rounds.
type Schedule struct {
	Rounds []Round `json:"rounds"`
	// MaxUniqueRounds is the round-robin length for the team count.
	MaxUniqueRounds int `json:"max_unique_rounds"`
	// RepeatedRounds counts rounds that reuse pairings because more rounds
	// were requested than MaxUniqueRounds.
	RepeatedRounds int `json:"repeated_rounds"`
}

// TotalQuality sums the predicted quality of every matchup.
func (s Schedule) TotalQuality() float64 {
	total := 0.0
	for _, r := range s.Rounds {
		for _, m := range r.Matchups {
			total += m.Quality
		}
	}
	return total
}

// Matchups flattens the schedule in round order.
func (s Schedule) Matchups() []Matchup {
	var out []Matchup
	for _, r := range s.Rounds {
		out = append(out, r.Matchups...)
	}
	return out
}
