// Package worker bounds the number of concurrent searches. Both hosts
// share it: the HTTP host rejects with a busy error when the queue is
// full, the batch host blocks until a worker frees up.
package worker

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/sizefit/sizefit/pkg/metrics"
)

// ErrPoolBusy is returned when the worker pool queue is at capacity.
var ErrPoolBusy = errors.New("worker: pool is busy, please retry later")

// Task is one unit of work executed on a pool worker.
type Task func(ctx context.Context) error

type job struct {
	ctx  context.Context
	run  Task
	done chan error
}

// Pool manages a fixed set of worker goroutines.
type Pool struct {
	jobs    chan job
	workers int
	wg      sync.WaitGroup
	once    sync.Once

	mu     sync.Mutex
	active int
}

// NewPool creates a pool with the given number of workers. The queue
// holds twice the worker count before Submit reports busy.
func NewPool(workers int) *Pool {
	return &Pool{
		jobs:    make(chan job, workers*2),
		workers: workers,
	}
}

// Start launches the worker goroutines. Safe to call multiple times.
func (p *Pool) Start() {
	p.once.Do(func() {
		log.Printf("Starting worker pool with %d workers", p.workers)
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		if err := j.ctx.Err(); err != nil {
			j.done <- err
			continue
		}

		p.mu.Lock()
		p.active++
		p.updateMetrics()
		p.mu.Unlock()

		err := j.run(j.ctx)

		p.mu.Lock()
		p.active--
		p.updateMetrics()
		p.mu.Unlock()

		j.done <- err
	}
}

// Submit enqueues a task without blocking. Returns ErrPoolBusy when the
// queue is full, otherwise waits for the task to finish.
func (p *Pool) Submit(ctx context.Context, run Task) error {
	p.Start()

	j := job{ctx: ctx, run: run, done: make(chan error, 1)}
	select {
	case p.jobs <- j:
	default:
		return ErrPoolBusy
	}
	return p.wait(ctx, j)
}

// Run enqueues a task, blocking until queue space is available or the
// context expires, then waits for the task to finish.
func (p *Pool) Run(ctx context.Context, run Task) error {
	p.Start()

	j := job{ctx: ctx, run: run, done: make(chan error, 1)}
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.wait(ctx, j)
}

func (p *Pool) wait(ctx context.Context, j job) error {
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.Start() // ensure workers exist so wg.Wait returns
	close(p.jobs)
	p.wg.Wait()
	log.Printf("Worker pool stopped")
}

// Stats returns the current queue depth and active job count.
func (p *Pool) Stats() (queued, active int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs), p.active
}

func (p *Pool) updateMetrics() {
	metrics.UpdateWorkerPoolMetrics(len(p.jobs), p.active)
}
