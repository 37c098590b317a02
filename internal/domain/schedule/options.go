package schedule

import (
	"math/rand"

	"github.com/okian/rally/internal/domain/optimizer"
	"github.com/okian/rally/internal/domain/quality"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithPredictor sets the predictor used to weigh matchups.
func WithPredictor(p *quality.Predictor) Option {
	return func(s *Scheduler) {
		if p != nil {
			s.predictor = p
		}
	}
}

// WithIterations caps the alternating phases of Integrate.
func WithIterations(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.iterations = n
		}
	}
}

// WithAnnealer sets the schedule used for participant swaps in Integrate.
func WithAnnealer(a optimizer.Annealer) Option {
	return func(s *Scheduler) {
		if a.MaxSteps > 0 && a.Cooling > 0 && a.Cooling < 1 && a.Floor > 0 && a.Start > a.Floor {
			s.annealer = a
		}
	}
}

// WithRand shares a random source, typically the optimizer's.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithSeed makes Integrate deterministic.
func WithSeed(seed int64) Option {
	return func(s *Scheduler) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible schedules
	}
}
