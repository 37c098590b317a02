package worker_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/rally/internal/adapters/mq/queue"
	"github.com/okian/rally/internal/adapters/mq/worker"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockApplier struct {
	mu      sync.Mutex
	applied []string
	fail    map[string]error
	active  int
	overlap bool
}

func (m *mockApplier) ApplyGame(_ context.Context, g queue.Game) error {
	m.mu.Lock()
	m.active++
	if m.active > 1 {
		m.overlap = true
	}
	err := m.fail[g.ID]
	if err == nil {
		m.applied = append(m.applied, g.ID)
	}
	m.mu.Unlock()

	time.Sleep(time.Millisecond)

	m.mu.Lock()
	m.active--
	m.mu.Unlock()
	return err
}

func (m *mockApplier) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.applied...)
}

func TestRatingWorker(t *testing.T) {
	_ = logger.Init(logger.WithWriter(io.Discard))

	convey.Convey("Given a worker on a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		applier := &mockApplier{fail: map[string]error{"bad": errors.New("boom")}}
		w := worker.New(q, applier, worker.WithName("test-worker"))
		ctx := context.Background()

		convey.Convey("When games are queued and the queue is closed", func() {
			for _, id := range []string{"g1", "bad", "g2", "g3"} {
				convey.So(q.Enqueue(ctx, model.GameResult{ID: id}), convey.ShouldBeNil)
			}
			_ = q.Close()
			w.Run(ctx)

			convey.Convey("Then every game is processed in order, one at a time", func() {
				convey.So(applier.ids(), convey.ShouldResemble, []string{"g1", "g2", "g3"})
				convey.So(applier.overlap, convey.ShouldBeFalse)
				convey.So(w.Processed(), convey.ShouldEqual, 3)
				convey.So(w.Failed(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the worker is shut down while idle", func() {
			go w.Run(ctx)
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)

			select {
			case <-w.Done():
			default:
				convey.So("worker still running", convey.ShouldBeEmpty)
			}
		})

		convey.Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			finished := make(chan struct{})
			go func() {
				w.Run(cctx)
				close(finished)
			}()
			cancel()

			convey.Convey("Then Run returns", func() {
				select {
				case <-finished:
				case <-time.After(time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})
}
