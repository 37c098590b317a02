// Package queue buffers submitted game results for the rating worker.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Game is the payload flowing through the queue.
type Game = model.GameResult

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a game. It fails with ErrFull instead of blocking.
	Enqueue(ctx context.Context, g Game) error

	// Dequeue returns a channel of queued games. It is closed once the queue
	// is closed and drained, or when ctx is done.
	Dequeue(ctx context.Context) <-chan Game

	// Len returns the number of pending games.
	Len(ctx context.Context) int

	// Close stops accepting games. Pending games are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	games    chan Game
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.games = make(chan Game, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds a game to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, g Game) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.games <- g:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return fmt.Errorf("%w: %d games pending", ErrFull, q.capacity)
	}
}

// Dequeue returns a channel that receives games as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Game {
	out := make(chan Game)
	go func() {
		defer close(out)
		for g := range q.games {
			select {
			case out <- g:
				metrics.RecordQueueDequeue()
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued games.
func (q *InMemoryQueue) Len(_ context.Context) int {
	q.observe()
	return len(q.games)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.games)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue) observe() {
	size := len(q.games)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
