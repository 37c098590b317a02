package service

import (
	"time"

	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/optimizer"
	"github.com/okian/rally/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the capacity of the game queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many game ids are remembered for deduplication.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry replaces the participant registry.
func WithRegistry(r *repository.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithTeamSize sets the default players per team for planning.
func WithTeamSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.teamSize = n
		}
	}
}

// WithIterations sets the number of randomized constructions per plan.
func WithIterations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.iterations = n
		}
	}
}

// WithOptimizerStrategy sets the default refinement strategy.
func WithOptimizerStrategy(st optimizer.Strategy) Option {
	return func(s *Service) {
		s.optimizerStrategy = st
	}
}

// WithPerturbation sets the rating noise used during construction.
func WithPerturbation(epsilon float64) Option {
	return func(s *Service) {
		if epsilon >= 0 {
			s.perturbation = epsilon
		}
	}
}

// WithSeed fixes the random seed of every plan. Zero seeds from the clock.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithRoundsCap limits the number of rounds a plan may request.
func WithRoundsCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.roundsCap = n
		}
	}
}

// WithIntegratedIterations caps the integrated team and schedule search.
func WithIntegratedIterations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.integratedIterations = n
		}
	}
}

// WithRatingStrategy selects "statistical" or "learned".
func WithRatingStrategy(name string) Option {
	return func(s *Service) {
		s.ratingStrategy = name
	}
}

// WithModelPath sets where the learned model is loaded from and saved to.
func WithModelPath(path string) Option {
	return func(s *Service) {
		s.modelPath = path
	}
}

// WithBeta sets the logistic spread of the statistical update.
func WithBeta(beta float64) Option {
	return func(s *Service) {
		if beta > 0 {
			s.beta = beta
		}
	}
}

// WithBaseFactor sets the maximum statistical adjustment per game.
func WithBaseFactor(f float64) Option {
	return func(s *Service) {
		if f > 0 {
			s.baseFactor = f
		}
	}
}

// WithSigmaReference sets the sigma at which statistical deltas are
// unscaled.
func WithSigmaReference(ref float64) Option {
	return func(s *Service) {
		if ref > 0 {
			s.sigmaRef = ref
		}
	}
}

// WithCloseness sets the rating gap at which predicted quality halves.
func WithCloseness(gap float64) Option {
	return func(s *Service) {
		if gap > 0 {
			s.closeness = gap
		}
	}
}

// WithSigmaFloor sets the minimum uncertainty after an update.
func WithSigmaFloor(floor float64) Option {
	return func(s *Service) {
		if floor > 0 {
			s.scale.SigmaFloor = floor
		}
	}
}

// WithSigmaDecay sets the per-game sigma multiplier.
func WithSigmaDecay(f float64) Option {
	return func(s *Service) {
		if f > 0 && f <= 1 {
			s.sigmaDecay = f
		}
	}
}

// WithChemistry enables teammate synergy with the given quality weight.
func WithChemistry(enabled bool, weight float64) Option {
	return func(s *Service) {
		s.chemistryEnabled = enabled
		if weight >= 0 {
			s.chemistryWeight = weight
		}
	}
}

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
