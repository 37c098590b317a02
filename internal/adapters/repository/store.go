// Package repository keeps the authoritative participant registry, a rating
// ordered standings index and the recorded game history.
package repository

import (
	"context"
	"io"

	"github.com/okian/rally/internal/domain/model"
)

// Standing is one row of the rating table.
type Standing struct {
	Rank        int     `json:"rank"`
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	Sigma       float64 `json:"sigma"`
	GamesPlayed int     `json:"games_played"`
	Wins        int     `json:"wins"`
}

// Store provides read/write access to participants and game history.
type Store interface {
	Create(ctx context.Context, p model.Participant) error
	Get(ctx context.Context, id string) (model.Participant, error)
	List(ctx context.Context) []model.Participant
	Roster(ctx context.Context, ids []string) (model.Roster, error)

	// SaveAll replaces existing participants atomically: if any id is
	// unknown nothing is written.
	SaveAll(ctx context.Context, ps []model.Participant) error

	// RecordGame stores a game record and its updated participants in one
	// step. A game id can be recorded once.
	RecordGame(ctx context.Context, rec model.GameRecord, updated []model.Participant) error
	Games(ctx context.Context, participantID string, limit int) []model.GameRecord
	GameIDs(ctx context.Context) []string

	Standings(ctx context.Context, limit int) ([]Standing, error)
	Rank(ctx context.Context, id string) (Standing, error)
	Count(ctx context.Context) int

	Export(ctx context.Context, w io.Writer, opts ...JSONLOption) error
	Import(ctx context.Context, r io.Reader, opts ...JSONLOption) (int, error)
}
