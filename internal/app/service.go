// Package service orchestrates planning, game recording, rating updates and
// model training on top of the participant registry.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/okian/rally/internal/adapters/mq/queue"
	"github.com/okian/rally/internal/adapters/mq/worker"
	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/chemistry"
	"github.com/okian/rally/internal/domain/dedupe"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/optimizer"
	"github.com/okian/rally/internal/domain/quality"
	"github.com/okian/rally/internal/domain/rating"
	"github.com/okian/rally/internal/domain/update"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Service implements the API dependencies of the matchmaking engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry  *repository.Registry
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	worker    *worker.RatingWorker
	chemistry *chemistry.Table
	predictor *quality.Predictor
	stat      *update.Statistical
	learned   *update.Learned
	engine    *update.Engine

	// applyMu serialises read-modify-write of ratings between synchronous
	// recording and the queue worker.
	applyMu sync.Mutex

	// Configuration
	queueSize            int
	dedupeSize           int
	teamSize             int
	iterations           int
	optimizerStrategy    optimizer.Strategy
	perturbation         float64
	seed                 int64
	roundsCap            int
	integratedIterations int
	ratingStrategy       string
	modelPath            string
	beta                 float64
	baseFactor           float64
	sigmaRef             float64
	closeness            float64
	sigmaDecay           float64
	scale                rating.Scale
	chemistryEnabled     bool
	chemistryWeight      float64
	now                  func() time.Time

	// State
	started      bool
	cancelWorker context.CancelFunc

	logger logger.Logger
}

// Default service configuration.
const (
	defaultQueueSize            = 1024
	defaultDedupeSize           = 50000
	defaultTeamSize             = 6
	defaultIterations           = 200
	defaultPerturbation         = 15.0
	defaultRoundsCap            = 32
	defaultIntegratedIterations = 10
	defaultChemistryWeight      = 1.0
)

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:            defaultQueueSize,
		dedupeSize:           defaultDedupeSize,
		teamSize:             defaultTeamSize,
		iterations:           defaultIterations,
		optimizerStrategy:    optimizer.StrategyHillClimb,
		perturbation:         defaultPerturbation,
		roundsCap:            defaultRoundsCap,
		integratedIterations: defaultIntegratedIterations,
		ratingStrategy:       update.StrategyStatistical,
		beta:                 update.DefaultBeta,
		baseFactor:           update.DefaultBaseFactor,
		sigmaRef:             update.DefaultSigmaReference,
		closeness:            quality.DefaultCloseness,
		sigmaDecay:           update.DefaultSigmaDecay,
		scale:                rating.DefaultScale(),
		chemistryWeight:      defaultChemistryWeight,
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = repository.NewRegistry()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.chemistryEnabled {
		s.chemistry = chemistry.New()
	}
	return s
}

// Start builds the rating components, loads the learned model when one is
// configured and starts the queue worker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting rally service...")

	popts := []quality.Option{quality.WithCloseness(s.closeness)}
	if s.chemistry != nil {
		popts = append(popts, quality.WithChemistry(s.chemistry, s.chemistryWeight))
	}
	s.predictor = quality.New(popts...)

	s.stat = update.NewStatistical(
		update.WithBeta(s.beta),
		update.WithBaseFactor(s.baseFactor),
		update.WithSigmaReference(s.sigmaRef),
	)
	s.learned = update.NewLearned(nil)
	if s.modelPath != "" {
		m, err := update.LoadModel(s.modelPath)
		switch {
		case err == nil:
			s.learned.SetModel(m)
			s.logger.Info(ctx, "loaded rating model",
				logger.String("path", s.modelPath),
				logger.Int("samples", m.Samples),
			)
		case errors.Is(err, model.ErrModelUnavailable), errors.Is(err, os.ErrNotExist):
			s.logger.Warn(ctx, "rating model not loaded, statistical fallback in use",
				logger.String("path", s.modelPath),
				logger.Error(err),
			)
		default:
			return fmt.Errorf("load rating model: %w", err)
		}
	}
	strategy, err := update.Select(s.ratingStrategy, s.stat, s.learned, s.logger.Named("rating"))
	if err != nil {
		return err
	}
	s.engine = update.New(
		update.WithStrategy(strategy),
		update.WithScale(s.scale),
		update.WithSigmaDecay(s.sigmaDecay),
		update.WithChemistry(s.chemistry),
		update.WithNow(s.now),
	)

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	for _, id := range s.registry.GameIDs(ctx) {
		s.deduper.SeenAndRecord(ctx, id)
	}
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.worker = worker.New(s.queue, s, worker.WithLogger(s.logger.Named("worker")))

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelWorker = cancel
	go s.worker.Run(workerCtx)

	s.started = true
	metrics.UpdateParticipants(s.registry.Count(ctx))
	s.logger.Info(ctx, "rally service started",
		logger.String("ratingStrategy", strategy.Name()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("chemistry", s.chemistryEnabled),
	)
	return nil
}

// Stop closes the queue, lets the worker drain it and shuts down.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping rally service...")

	_ = s.queue.Close()
	select {
	case <-s.worker.Done():
	case <-ctx.Done():
		if err := s.worker.Shutdown(context.Background()); err != nil {
			s.logger.Warn(ctx, "worker shutdown", logger.Error(err))
		}
	}
	s.cancelWorker()

	s.started = false
	s.logger.Info(ctx, "rally service stopped",
		logger.Int("processed", int(s.worker.Processed())),
		logger.Int("failed", int(s.worker.Failed())),
	)
}

// Registry exposes the participant registry.
func (s *Service) Registry() *repository.Registry { return s.registry }

// running returns the started components or ErrNotStarted.
func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"ratingStrategy": s.ratingStrategy,
		"chemistry":      s.chemistryEnabled,
		"participants":   s.registry.Count(ctx),
		"games":          len(s.registry.GameIDs(ctx)),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["processed"] = s.worker.Processed()
		stats["failed"] = s.worker.Failed()
		stats["dedupeEntries"] = s.deduper.Size()
		stats["modelLoaded"] = s.learned.Model() != nil
		if fb, ok := s.engine.Strategy().(*update.Fallback); ok {
			stats["ratingFallbacks"] = fb.Fallbacks()
		}
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
