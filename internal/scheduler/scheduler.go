// Package scheduler implements bounded-concurrency dispatch of tool
// invocations across the Search Cycle's stages. It wraps
// golang.org/x/sync/errgroup: SetLimit bounds concurrency, each worker's
// error is captured rather than propagated fatally, and the caller drains a
// single results channel as matches arrive.
package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/swegrep/swegrep/internal/adapter"
	"github.com/swegrep/swegrep/internal/searchtypes"
)

// Per-stage deadlines. The Scheduler stops admitting new tasks for a stage
// once its deadline has passed, and caps every in-flight invocation's
// context at that deadline, so an adapter still running then is cancelled.
const (
	DiscoverDeadline     = 40 * time.Millisecond
	ProbeDeadline        = 150 * time.Millisecond
	DisambiguateDeadline = 80 * time.Millisecond
	EscalateDeadline     = 200 * time.Millisecond
	VerifyDeadline       = 50 * time.Millisecond
)

// Task binds one adapter invocation to the tool that must run it. Deadline
// is the absolute time by which this specific invocation should have
// returned; a zero Deadline means "use the stage's remaining budget".
type Task struct {
	Tool       string
	Invocation adapter.Invocation
	Deadline   time.Time
}

// Stats summarizes one Dispatch call for StageStats bookkeeping.
type Stats struct {
	Dropped  map[string]int
	Warnings []searchtypes.Warning
	Errors   map[string]error
}

func newStats() *Stats {
	return &Stats{Dropped: make(map[string]int), Errors: make(map[string]error)}
}

// Scheduler dispatches Tasks against a fixed registry of adapters, bounding
// the number of concurrently running subprocesses to Concurrency, a bounded
// worker pool defaulting to 8.
type Scheduler struct {
	Concurrency int
	Adapters    map[string]adapter.Adapter
}

// New builds a Scheduler. concurrency <= 0 falls back to
// searchtypes.DefaultConcurrency.
func New(concurrency int, adapters map[string]adapter.Adapter) *Scheduler {
	if concurrency <= 0 {
		concurrency = searchtypes.DefaultConcurrency
	}
	return &Scheduler{Concurrency: concurrency, Adapters: adapters}
}

// CancelSignal is a one-shot cooperative cancellation token. A stage
// triggers it the moment the Scorer reports a high-confidence hit; every
// still-running adapter invocation sees its context cancelled, and since
// the adapters start their subprocesses with exec.CommandContext, each
// subprocess is killed right away rather than at its own deadline.
type CancelSignal struct {
	once   sync.Once
	cancel context.CancelFunc
}

// WithCancel derives a cancelable context and its CancelSignal from parent.
func WithCancel(parent context.Context) (context.Context, *CancelSignal) {
	ctx, cancel := context.WithCancel(parent)
	return ctx, &CancelSignal{cancel: cancel}
}

// Trip cancels the derived context exactly once.
func (c *CancelSignal) Trip() {
	c.once.Do(c.cancel)
}

// Dispatch runs every task with bounded concurrency, streaming RawMatches to
// out as adapters parse them. It returns once every task has either
// completed, been skipped (disabled adapter), or the stage deadline has
// passed for tasks not yet started. Dispatch never closes out.
func (s *Scheduler) Dispatch(ctx context.Context, tasks []Task, out chan<- searchtypes.RawMatch, stageDeadline time.Time) *Stats {
	stats := newStats()
	if len(tasks) == 0 {
		return stats
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)

	for _, task := range tasks {
		task := task
		if !time.Now().Before(stageDeadline) {
			mu.Lock()
			stats.Dropped[task.Tool]++
			mu.Unlock()
			continue
		}

		a, ok := s.Adapters[task.Tool]
		if !ok || !a.Available() {
			mu.Lock()
			stats.Warnings = append(stats.Warnings, searchtypes.Warning{
				Kind: searchtypes.ErrBinaryNotFound, Tool: task.Tool,
				Message: "adapter unavailable, skipping invocation",
			})
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			deadline := task.Deadline
			if deadline.IsZero() || deadline.After(stageDeadline) {
				deadline = stageDeadline
			}
			invCtx, cancel := context.WithDeadline(gctx, deadline)
			defer cancel()

			result := a.Invoke(invCtx, task.Invocation, out)

			mu.Lock()
			defer mu.Unlock()
			if result.Dropped > 0 {
				stats.Dropped[task.Tool] += result.Dropped
			}
			if len(result.Warnings) > 0 {
				stats.Warnings = append(stats.Warnings, result.Warnings...)
			}
			if result.Err != nil {
				stats.Errors[task.Tool] = result.Err
			}
			return nil // adapter errors are non-fatal to the group, same as walker.go's read errors
		})
	}

	_ = g.Wait() // never returns non-nil: every worker swallows its own error above
	return stats
}
