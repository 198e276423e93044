// Package sched provides the periodic task runner shared by the scan and
// risk cycles: a ticker-driven loop where cycles run to completion and a
// tick that fires mid-cycle is skipped rather than overlapped.
package sched

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task runs fn every interval until stopped. Cycles are single-flight: fn
// runs synchronously on the task goroutine, so a new cycle can never start
// before the previous one returns. Stop lets an in-flight cycle finish and
// guarantees no further cycle starts after it returns.
type Task struct {
	name     string
	interval time.Duration
	fn       func(context.Context)
	logger   *slog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New creates a Task that will run fn every interval once started.
func New(name string, interval time.Duration, fn func(context.Context), logger *slog.Logger) *Task {
	return &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger.With(slog.String("component", "sched"), slog.String("task", name)),
	}
}

// Start launches the task loop. Calling Start on a running task is a no-op.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})

	go t.loop(ctx, t.stopCh, t.doneCh)
	t.logger.Info("periodic task started", slog.Duration("interval", t.interval))
}

// Stop halts scheduling and blocks until any in-flight cycle has returned.
// Safe to call multiple times.
func (t *Task) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	stopCh, doneCh := t.stopCh, t.doneCh
	t.mu.Unlock()

	close(stopCh)
	<-doneCh
	t.logger.Info("periodic task stopped")
}

func (t *Task) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// fn runs synchronously here; ticks that fire while it runs
			// are dropped by the ticker, which is the skip behaviour we
			// want for slow cycles.
			t.fn(ctx)
		}
	}
}
