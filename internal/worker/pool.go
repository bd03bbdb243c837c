package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned by Do after Stop
var ErrStopped = errors.New("worker pool stopped")

// PanicError wraps a value recovered from a job
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}

type job struct {
	fn   func() error
	done chan error
}

// Pool runs CPU-bound jobs on a fixed number of goroutines
type Pool struct {
	workers int
	logger  *slog.Logger

	jobs     chan job
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	busy atomic.Int64
}

// Config contains pool configuration
type Config struct {
	Workers int
}

// New creates a pool. Workers <= 0 means runtime.NumCPU().
func New(cfg Config, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		workers: cfg.Workers,
		logger:  logger.With("component", "worker_pool"),
		jobs:    make(chan job),
		stopCh:  make(chan struct{}),
	}
}

// Start starts the pool workers
func (p *Pool) Start() {
	p.logger.Info("starting worker pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops the workers and waits for running jobs to finish
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("stopping worker pool")
		close(p.stopCh)
		p.wg.Wait()
		p.logger.Info("worker pool stopped")
	})
}

// Workers returns the number of worker goroutines
func (p *Pool) Workers() int {
	return p.workers
}

// Busy returns the number of jobs currently running
func (p *Pool) Busy() int {
	return int(p.busy.Load())
}

// Do waits for a free worker, runs fn on it and returns its error.
// If ctx ends first Do returns ctx.Err(); a job that already started keeps
// running and its result is discarded.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return ErrStopped
	case p.jobs <- j:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-j.done:
		return err
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Debug("worker started")

	for {
		select {
		case <-p.stopCh:
			logger.Debug("worker stopped")
			return
		case j := <-p.jobs:
			j.done <- p.run(j.fn, logger)
		}
	}
}

func (p *Pool) run(fn func() error, logger *slog.Logger) (err error) {
	p.busy.Add(1)
	defer p.busy.Add(-1)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("job panicked", "panic", rec)
			err = &PanicError{Value: rec}
		}
	}()
	return fn()
}
