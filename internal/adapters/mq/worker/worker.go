// Package worker applies queued game results to ratings. A single worker
// consumes the queue so rating mutations are serialised.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rally/internal/adapters/mq/queue"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Applier records one game and updates its participants.
type Applier interface {
	ApplyGame(ctx context.Context, g queue.Game) error
}

// Queue defines how the worker receives games.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Game
}

// RatingWorker drains the game queue.
type RatingWorker struct {
	queue   Queue
	applier Applier
	name    string
	logger  logger.Logger

	processed atomic.Int64
	failed    atomic.Int64

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}
}

// New creates a worker with configuration options.
func New(q Queue, applier Applier, opts ...Option) *RatingWorker {
	w := &RatingWorker{
		queue:    q,
		applier:  applier,
		name:     "rating-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes games until the queue is drained and closed, Shutdown is
// called, or ctx is cancelled.
func (w *RatingWorker) Run(ctx context.Context) {
	defer close(w.done)
	metrics.UpdateWorkerCount(1)
	defer metrics.UpdateWorkerCount(0)

	games := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case g, ok := <-games:
			if !ok {
				return
			}
			if err := w.process(ctx, g); err != nil {
				w.logger.Error(ctx, "error applying game", logger.Error(err))
			}
		}
	}
}

// Done is closed when Run returns.
func (w *RatingWorker) Done() <-chan struct{} { return w.done }

// Shutdown stops the worker without draining the queue.
func (w *RatingWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns how many games were applied.
func (w *RatingWorker) Processed() int64 { return w.processed.Load() }

// Failed returns how many games could not be applied.
func (w *RatingWorker) Failed() int64 { return w.failed.Load() }

func (w *RatingWorker) process(ctx context.Context, g queue.Game) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.applier.ApplyGame(ctx, g); err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "apply_error")
		return fmt.Errorf("apply game %s: %w", g.ID, err)
	}
	w.processed.Add(1)
	return nil
}
