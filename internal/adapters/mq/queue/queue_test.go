package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/rally/internal/domain/model"
)

func game(id string) Game {
	return model.GameResult{ID: id, TeamA: []string{"a"}, TeamB: []string{"b"}, ScoreA: 21, ScoreB: 18}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, game("g1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "g1" {
		t.Errorf("expected g1, got %v", got.ID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"g1", "g2"} {
		if err := q.Enqueue(ctx, game(id)); err != nil {
			t.Fatalf("expected enqueue of %s to succeed, got %v", id, err)
		}
	}
	if err := q.Enqueue(ctx, game("g3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, game("g1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_SingleConsumerOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := q.Enqueue(ctx, game(fmt.Sprintf("g%02d", i))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	_ = q.Close()

	i := 0
	for g := range q.Dequeue(ctx) {
		if want := fmt.Sprintf("g%02d", i); g.ID != want {
			t.Fatalf("expected %s, got %s", want, g.ID)
		}
		i++
	}
	if i != 50 {
		t.Errorf("expected 50 games after close, got %d", i)
	}
}

func TestInMemoryQueue_ConcurrentProducers(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx := context.Background()
	const producers, perProducer = 8, 50

	consumed := make(chan string, producers*perProducer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for g := range q.Dequeue(ctx) {
			consumed <- g.ID
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				for q.Enqueue(ctx, game(fmt.Sprintf("g%d_%d", p, j))) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}(p)
	}
	wg.Wait()
	_ = q.Close()
	<-done

	if n := len(consumed); n != producers*perProducer {
		t.Errorf("expected %d games, got %d", producers*perProducer, n)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, game("g1")); err != nil {
		t.Fatal(err)
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.Enqueue(ctx, game("g2")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	ch := q.Dequeue(ctx)
	if g := <-ch; g.ID != "g1" {
		t.Errorf("expected pending g1 to be delivered, got %q", g.ID)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected dequeue channel to be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("expected dequeue channel to be closed within timeout")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
