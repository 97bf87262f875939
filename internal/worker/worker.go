package worker

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrPoolStopped = errors.New("worker pool stopped")
	ErrQueueFull   = errors.New("worker queue full")
)

type ProcessFunc[T any] func(ctx context.Context, job T) error

// Pool runs a fixed number of workers over a bounded job queue.
type Pool[T any] struct {
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewPool[T any](numWorkers int, bufferSize int, processor ProcessFunc[T]) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
	}
}

func (p *Pool[T]) Start(ctx context.Context) {
	for i := 1; i <= p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool[T]) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			_ = p.processor(ctx, job)
		}
	}
}

// Submit blocks until the job is queued, ctx is done or the pool is stopped.
func (p *Pool[T]) Submit(ctx context.Context, job T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues the job without blocking. It returns ErrQueueFull or
// ErrPoolStopped when the job was not queued.
func (p *Pool[T]) TrySubmit(job T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued jobs not yet picked up by a worker.
func (p *Pool[T]) Pending() int {
	return len(p.jobs)
}

// Stop closes the queue and waits for workers to finish. Jobs already queued
// are processed unless the start context was cancelled first.
func (p *Pool[T]) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
