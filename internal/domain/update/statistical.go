package update

import (
	"context"
	"math"

	"github.com/okian/rally/internal/domain/model"
)

// Default statistical update parameters.
const (
	DefaultBeta           = 100.0
	DefaultBaseFactor     = 20.0
	DefaultSigmaReference = 100.0
)

// StatisticalOption configures a Statistical strategy.
type StatisticalOption func(*Statistical)

// WithBeta sets the logistic spread in rating units.
func WithBeta(beta float64) StatisticalOption {
	return func(s *Statistical) {
		if beta > 0 {
			s.beta = beta
		}
	}
}

// WithBaseFactor sets the delta of a full surprise at reference sigma.
func WithBaseFactor(f float64) StatisticalOption {
	return func(s *Statistical) {
		if f > 0 {
			s.baseFactor = f
		}
	}
}

// WithSigmaReference sets the sigma at which deltas are unscaled.
func WithSigmaReference(ref float64) StatisticalOption {
	return func(s *Statistical) {
		if ref > 0 {
			s.sigmaRef = ref
		}
	}
}

// Statistical moves ratings by how surprising the result was under a
// logistic win expectation, scaled by each participant's uncertainty.
type Statistical struct {
	beta       float64
	baseFactor float64
	sigmaRef   float64
}

// NewStatistical creates the statistical strategy.
func NewStatistical(opts ...StatisticalOption) *Statistical {
	s := &Statistical{
		beta:       DefaultBeta,
		baseFactor: DefaultBaseFactor,
		sigmaRef:   DefaultSigmaReference,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Strategy.
func (s *Statistical) Name() string { return StrategyStatistical }

// Expected is team A's win probability given both team averages.
func (s *Statistical) Expected(avgA, avgB float64) float64 {
	return 1 / (1 + math.Exp(-(avgA-avgB)/s.beta))
}

// ComputeAdjustments implements Strategy.
func (s *Statistical) ComputeAdjustments(ctx context.Context, g Game) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	avgA, avgB := averages(g)
	surprise := actualScore(g.Result) - s.Expected(avgA, avgB)

	out := make(map[string]float64, len(g.TeamA)+len(g.TeamB))
	side := func(ps []model.Participant, sign float64) {
		for _, p := range ps {
			out[p.ID] = sign * s.baseFactor * surprise * p.Sigma / s.sigmaRef
		}
	}
	side(g.TeamA, 1)
	side(g.TeamB, -1)
	return out, nil
}
