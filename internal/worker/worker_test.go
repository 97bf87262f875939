package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewPool(2, 10, processor)
	pool.Start(context.Background())

	for i := 0; i < 5; i++ {
		if err := pool.Submit(context.Background(), i); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	// Stop drains what is queued.
	pool.Stop()

	if processed.Load() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", processed.Load())
	}
}

func TestPool_ConcurrentSubmit(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewPool(4, 100, processor)
	pool.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			pool.Submit(context.Background(), n)
		}(i)
	}
	wg.Wait()
	pool.Stop()

	if processed.Load() != 100 {
		t.Errorf("expected 100 jobs processed, got %d", processed.Load())
	}
}

func TestPool_TrySubmitFullQueue(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	processor := func(ctx context.Context, job int) error {
		started <- struct{}{}
		<-release
		return nil
	}

	pool := NewPool(1, 1, processor)
	pool.Start(context.Background())

	if err := pool.TrySubmit(1); err != nil {
		t.Fatalf("expected first job to be accepted, got %v", err)
	}
	<-started

	if err := pool.TrySubmit(2); err != nil {
		t.Fatalf("expected second job to fill the queue, got %v", err)
	}

	done := make(chan error)
	go func() { done <- pool.TrySubmit(3) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueFull) {
			t.Errorf("expected ErrQueueFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("TrySubmit blocked on a full queue")
	}

	close(release)
	pool.Stop()
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(1, 1, func(ctx context.Context, job int) error { return nil })
	pool.Start(context.Background())
	pool.Stop()

	if err := pool.TrySubmit(1); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped from TrySubmit, got %v", err)
	}
	if err := pool.Submit(context.Background(), 1); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}

	// Stopping twice is safe.
	pool.Stop()
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	pool := NewPool(1, 0, func(ctx context.Context, job int) error {
		<-block
		return nil
	})
	pool.Start(context.Background())

	if err := pool.Submit(context.Background(), 1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pool.Submit(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	close(block)
	pool.Stop()
}

func TestPool_GracefulShutdown(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		time.Sleep(10 * time.Millisecond)
		processed.Add(1)
		return nil
	}

	pool := NewPool(2, 50, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		_ = pool.TrySubmit(i)
	}

	// Cancelling first lets workers exit without draining.
	cancel()
	pool.Stop()

	if processed.Load() > 20 {
		t.Errorf("processed more jobs than submitted: %d", processed.Load())
	}
}
