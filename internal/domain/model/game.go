package model

import (
	"time"

	"github.com/google/uuid"
)

// GameResult is a finished game between two rosters of participant ids.
type GameResult struct {
	ID       string    `json:"id"`
	TeamA    []string  `json:"team_a"`
	TeamB    []string  `json:"team_b"`
	ScoreA   int       `json:"score_a"`
	ScoreB   int       `json:"score_b"`
	PlayedAt time.Time `json:"played_at"`
}

// NewGameID returns a fresh game identifier.
func NewGameID() string {
	return uuid.New().String()
}

// Winner reports 1 when TeamA won, -1 when TeamB won and 0 on a tie.
func (g GameResult) Winner() int {
	switch {
	case g.ScoreA > g.ScoreB:
		return 1
	case g.ScoreB > g.ScoreA:
		return -1
	default:
		return 0
	}
}

// Involves reports whether id played in the game and on which side.
func (g GameResult) Involves(id string) (onA bool, ok bool) {
	for _, p := range g.TeamA {
		if p == id {
			return true, true
		}
	}
	for _, p := range g.TeamB {
		if p == id {
			return false, true
		}
	}
	return false, false
}

// RatingSnapshot is a participant's rating state before a game.
type RatingSnapshot struct {
	Rating      float64 `json:"rating"`
	Sigma       float64 `json:"sigma"`
	Tier        string  `json:"tier,omitempty"`
	GamesPlayed int     `json:"games_played"`
}

// Snapshot captures p's rating state.
func Snapshot(p Participant) RatingSnapshot {
	return RatingSnapshot{Rating: p.Rating, Sigma: p.Sigma, Tier: p.Tier, GamesPlayed: p.GamesPlayed}
}

// GameRecord is a recorded result with the pre-game ratings of every
// participant. Records are the training samples of the learned strategy.
type GameRecord struct {
	Result GameResult                `json:"result"`
	Before map[string]RatingSnapshot `json:"before"`
	Deltas map[string]float64        `json:"deltas,omitempty"`
}
