// Package update adjusts participant ratings after finished games.
//
// Two strategies compute per-participant rating deltas behind one interface:
// a statistical logistic update and a learned linear model. The learned model
// is always wrapped in a Fallback that switches to the statistical update
// when no usable model is available. Engine applies the deltas to copies of
// the participants and never mutates shared state.
package update

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/pkg/logger"
)

// Strategy names accepted by Select.
const (
	StrategyStatistical = "statistical"
	StrategyLearned     = "learned"
)

// Game is a finished game with both rosters resolved to participant copies.
type Game struct {
	Result model.GameResult
	TeamA  []model.Participant
	TeamB  []model.Participant
}

// Strategy computes rating deltas keyed by participant id.
type Strategy interface {
	Name() string
	ComputeAdjustments(ctx context.Context, g Game) (map[string]float64, error)
}

// Select returns the strategy for a configured name. The learned strategy
// is returned wrapped with the statistical fallback.
func Select(name string, stat *Statistical, learned *Learned, log logger.Logger) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyStatistical:
		return stat, nil
	case StrategyLearned:
		return NewFallback(learned, stat, WithFallbackLogger(log)), nil
	default:
		return nil, fmt.Errorf("%w: unknown rating strategy %q", model.ErrInvalidConfiguration, name)
	}
}

// actualScore is team A's result: 1 for a win, 0.5 for a tie, 0 for a loss.
func actualScore(r model.GameResult) float64 {
	switch r.Winner() {
	case 1:
		return 1
	case -1:
		return 0
	default:
		return 0.5
	}
}

func averages(g Game) (avgA, avgB float64) {
	avgA, _ = rating.Average(g.TeamA)
	avgB, _ = rating.Average(g.TeamB)
	return avgA, avgB
}
