package optimizer

import (
	"math/rand"

	"github.com/okian/rally/internal/domain/quality"
	"github.com/okian/rally/internal/domain/rating"
)

// Option applies a configuration option to the Optimizer.
type Option func(*Optimizer)

// WithPredictor sets the quality predictor used by the balance objective.
func WithPredictor(p *quality.Predictor) Option {
	return func(o *Optimizer) {
		if p != nil {
			o.predictor = p
		}
	}
}

// WithScale sets the rating scale used to clamp perturbed ratings.
func WithScale(s rating.Scale) Option {
	return func(o *Optimizer) {
		o.scale = s
	}
}

// WithIterations sets the number of randomized constructions.
func WithIterations(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.iterations = n
		}
	}
}

// WithSwapBudget caps the swaps tried by hill-climbing refinement.
func WithSwapBudget(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.swapBudget = n
		}
	}
}

// WithStrategy selects the refinement strategy.
func WithStrategy(s Strategy) Option {
	return func(o *Optimizer) {
		switch s {
		case StrategySnake, StrategyHillClimb, StrategyAnneal:
			o.strategy = s
		}
	}
}

// WithPerturbation sets the rating noise amplitude used during construction.
func WithPerturbation(epsilon float64) Option {
	return func(o *Optimizer) {
		if epsilon >= 0 {
			o.epsilon = epsilon
		}
	}
}

// WithSeed makes the optimizer deterministic.
func WithSeed(seed int64) Option {
	return func(o *Optimizer) {
		o.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible team splits
	}
}

// WithAnnealer sets the simulated annealing schedule.
func WithAnnealer(a Annealer) Option {
	return func(o *Optimizer) {
		if a.valid() {
			o.annealer = a
		}
	}
}
