// Package postcommit runs side effects after the mutation that triggered them
// has been committed. Tasks run detached from the request: their failures are
// logged and never reach the caller.
package postcommit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTaskTimeout bounds a single task when no timeout is configured
const DefaultTaskTimeout = 30 * time.Second

// Task is a unit of post-commit work
type Task func(ctx context.Context) error

// Runner executes each scheduled task exactly once on its own goroutine
type Runner struct {
	wg      sync.WaitGroup
	timeout time.Duration
	mu      sync.RWMutex
	closed  bool
}

// NewRunner creates a runner. A non-positive timeout uses DefaultTaskTimeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &Runner{timeout: timeout}
}

// Schedule starts task in the background.
// After Close the task is dropped and a warning is logged.
func (r *Runner) Schedule(name string, task func(ctx context.Context) error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		slog.Warn("[POSTCOMMIT] runner closed, dropping task", "task", name)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(name, task)
	}()
}

func (r *Runner) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[POSTCOMMIT] task panicked", "task", name, "panic", rec)
		}
	}()

	start := time.Now()
	if err := task(ctx); err != nil {
		slog.Error("[POSTCOMMIT] task failed",
			"task", name,
			"duration", time.Since(start),
			"error", err,
		)
		return
	}
	slog.Debug("[POSTCOMMIT] task completed", "task", name, "duration", time.Since(start))
}

// Wait blocks until every task scheduled so far has finished
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close stops accepting tasks and waits for in-flight ones until ctx is done
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
