// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a player tracked by the registry.
type Participant struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Tier          string    `json:"tier,omitempty"` // optional skill tier, A (best) to F
	Rating        float64   `json:"rating"`
	Sigma         float64   `json:"sigma"` // uncertainty around Rating
	LastPlayed    time.Time `json:"last_played"`
	GamesPlayed   int       `json:"games_played"`
	Wins          int       `json:"wins"`
	PointsScored  int       `json:"points_scored"`
	PointsAllowed int       `json:"points_allowed"`
}

// NewParticipantID returns a fresh participant identifier.
func NewParticipantID() string {
	return uuid.New().String()
}

// Roster indexes participant snapshots by id.
type Roster map[string]Participant

// NewRoster builds a Roster from a slice. Later duplicates win.
func NewRoster(ps []Participant) Roster {
	r := make(Roster, len(ps))
	for _, p := range ps {
		r[p.ID] = p
	}
	return r
}

// Resolve returns the participants for ids in order.
func (r Roster) Resolve(ids []string) ([]Participant, error) {
	out := make([]Participant, 0, len(ids))
	for _, id := range ids {
		p, ok := r[id]
		if !ok {
			return nil, NotFound(id)
		}
		out = append(out, p)
	}
	return out, nil
}
