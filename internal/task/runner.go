// Package task provides a small detached runner for fire-and-forget side
// effects. Work submitted here runs off the response path: failures are
// logged, never surfaced to the request that queued them, and a crash may
// lose queued work. That weak consistency is intentional — the only current
// use is recording API-key last-used timestamps.
package task

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Fn is a unit of detached work.
type Fn func(ctx context.Context) error

// job pairs the work with a name for logging.
type job struct {
	name string
	fn   Fn
}

// Runner executes submitted work on background workers.
type Runner struct {
	queue  chan job
	logger *slog.Logger
	wg     sync.WaitGroup

	// mu orders Submit's queue send against Stop closing the queue: a send
	// on a closed channel panics, so the two must never interleave.
	mu      sync.RWMutex
	stopped bool

	// jobTimeout bounds a single job so a stuck upstream cannot pin a
	// worker forever.
	jobTimeout time.Duration
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	QueueSize   int
	WorkerCount int
	JobTimeout  time.Duration
}

// NewRunner creates and starts a runner with the given configuration.
func NewRunner(cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		queue:      make(chan job, cfg.QueueSize),
		logger:     logger.With(slog.String("component", "task_runner")),
		jobTimeout: cfg.JobTimeout,
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker()
	}

	return r
}

// Submit queues work without blocking. When the queue is saturated the work
// is dropped with a warning; callers must treat submission as best-effort.
func (r *Runner) Submit(name string, fn Fn) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		r.logger.Warn("task dropped, runner stopped", slog.String("task", name))
		return
	}

	select {
	case r.queue <- job{name: name, fn: fn}:
	default:
		r.logger.Warn("task dropped, queue full", slog.String("task", name))
	}
}

// Stop closes the queue and waits for in-flight work to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Runner) worker() {
	defer r.wg.Done()

	for j := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.jobTimeout)
		if err := j.fn(ctx); err != nil {
			r.logger.Warn("detached task failed",
				slog.String("task", j.name),
				slog.String("error", err.Error()))
		}
		cancel()
	}
}
