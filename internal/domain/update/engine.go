package update

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/rally/internal/domain/chemistry"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
)

// Default engine parameters.
const (
	DefaultSigmaDecay = 0.95

	feedbackWinScore  = 25
	feedbackLoseScore = 22
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithStrategy sets the strategy that computes deltas.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) {
		if s != nil {
			e.strategy = s
		}
	}
}

// WithScale sets the rating domain and sigma floor.
func WithScale(s rating.Scale) Option {
	return func(e *Engine) {
		e.scale = s
	}
}

// WithSigmaDecay sets the per-game sigma multiplier.
func WithSigmaDecay(f float64) Option {
	return func(e *Engine) {
		if f > 0 && f <= 1 {
			e.sigmaDecay = f
		}
	}
}

// WithChemistry records teammate synergy for every committed game.
func WithChemistry(t *chemistry.Table) Option {
	return func(e *Engine) {
		e.chemistry = t
	}
}

// WithNow overrides the clock used when a game has no PlayedAt.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine applies finished games to participant copies.
type Engine struct {
	strategy   Strategy
	scale      rating.Scale
	sigmaDecay float64
	chemistry  *chemistry.Table
	now        func() time.Time
}

// New creates an Engine. The statistical strategy is used unless another
// is configured.
func New(opts ...Option) *Engine {
	e := &Engine{
		strategy:   NewStatistical(),
		scale:      rating.DefaultScale(),
		sigmaDecay: DefaultSigmaDecay,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategy returns the configured strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Outcome is the result of applying one game.
type Outcome struct {
	// Updated holds the changed participants, team A first.
	Updated []model.Participant
	Record  model.GameRecord

	// scored marks a real game whose teammate chemistry Commit records.
	scored bool
}

// Validate checks a result before anything is changed.
func Validate(r model.GameResult) error {
	switch {
	case len(r.TeamA) == 0 || len(r.TeamB) == 0:
		return fmt.Errorf("%w: game %s needs players on both teams", model.ErrInvalidConfiguration, r.ID)
	case r.ScoreA < 0 || r.ScoreB < 0:
		return fmt.Errorf("%w: game %s has negative score %d-%d", model.ErrInvalidConfiguration, r.ID, r.ScoreA, r.ScoreB)
	}
	seen := make(map[string]bool, len(r.TeamA)+len(r.TeamB))
	for _, id := range append(append([]string(nil), r.TeamA...), r.TeamB...) {
		if id == "" {
			return fmt.Errorf("%w: game %s has an empty participant id", model.ErrInvalidConfiguration, r.ID)
		}
		if seen[id] {
			return fmt.Errorf("%w: participant %s appears twice in game %s", model.ErrInvalidConfiguration, id, r.ID)
		}
		seen[id] = true
	}
	return nil
}

// Apply computes the update of every participant of r, resolved from
// roster. It changes nothing shared; the caller persists out.Updated and then
// calls Commit.
func (e *Engine) Apply(ctx context.Context, r model.GameResult, roster model.Roster) (Outcome, error) {
	return e.apply(ctx, r, roster, true)
}

// Commit records the teammate chemistry of an applied game. Call it once
// the outcome has been stored; feedback outcomes carry no chemistry.
func (e *Engine) Commit(out Outcome) {
	if !out.scored || e.chemistry == nil {
		return
	}
	r := out.Record.Result
	winner := r.Winner()
	e.chemistry.Record(r.TeamA, outcomeFor(winner))
	e.chemistry.Record(r.TeamB, outcomeFor(-winner))
}

// Feedback applies a manual verdict as a virtual 25-22 game. Only rating,
// sigma and games played change. winner is 1 for team A and -1 for team B.
func (e *Engine) Feedback(ctx context.Context, teamA, teamB []string, winner int, roster model.Roster) (Outcome, error) {
	r := model.GameResult{ID: model.NewGameID(), TeamA: teamA, TeamB: teamB}
	switch winner {
	case 1:
		r.ScoreA, r.ScoreB = feedbackWinScore, feedbackLoseScore
	case -1:
		r.ScoreA, r.ScoreB = feedbackLoseScore, feedbackWinScore
	default:
		return Outcome{}, fmt.Errorf("%w: feedback winner must be 1 or -1, got %d", model.ErrInvalidConfiguration, winner)
	}
	return e.apply(ctx, r, roster, false)
}

func (e *Engine) apply(ctx context.Context, r model.GameResult, roster model.Roster, full bool) (Outcome, error) {
	if err := Validate(r); err != nil {
		return Outcome{}, err
	}
	a, err := roster.Resolve(r.TeamA)
	if err != nil {
		return Outcome{}, err
	}
	b, err := roster.Resolve(r.TeamB)
	if err != nil {
		return Outcome{}, err
	}
	if r.PlayedAt.IsZero() {
		r.PlayedAt = e.now().UTC()
	}

	g := Game{Result: r, TeamA: a, TeamB: b}
	deltas, err := e.strategy.ComputeAdjustments(ctx, g)
	if err != nil {
		return Outcome{}, fmt.Errorf("compute adjustments for game %s: %w", r.ID, err)
	}

	out := Outcome{
		scored:  full,
		Updated: make([]model.Participant, 0, len(a)+len(b)),
		Record: model.GameRecord{
			Result: r,
			Before: make(map[string]model.RatingSnapshot, len(a)+len(b)),
			Deltas: make(map[string]float64, len(a)+len(b)),
		},
	}
	winner := r.Winner()
	side := func(ps []model.Participant, own, opp int, won bool) {
		for _, p := range ps {
			out.Record.Before[p.ID] = model.Snapshot(p)
			d := deltas[p.ID]
			if math.IsNaN(d) || math.IsInf(d, 0) {
				d = 0
			}
			before := p.Rating
			p.Rating = e.scale.Clamp(p.Rating + d)
			p.Sigma = math.Max(e.scale.SigmaFloor, p.Sigma*e.sigmaDecay)
			p.GamesPlayed++
			if full {
				if won {
					p.Wins++
				}
				p.PointsScored += own
				p.PointsAllowed += opp
				p.LastPlayed = r.PlayedAt
			}
			out.Record.Deltas[p.ID] = p.Rating - before
			out.Updated = append(out.Updated, p)
		}
	}
	side(a, r.ScoreA, r.ScoreB, winner == 1)
	side(b, r.ScoreB, r.ScoreA, winner == -1)
	return out, nil
}

func outcomeFor(winner int) chemistry.Outcome {
	switch winner {
	case 1:
		return chemistry.Win
	case -1:
		return chemistry.Loss
	default:
		return chemistry.Tie
	}
}
