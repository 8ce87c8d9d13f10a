// Package worker runs independent units of pipeline work with bounded
// concurrency and per-task failure isolation.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/okian/xcleague/pkg/logger"
	"github.com/okian/xcleague/pkg/metrics"
)

// Task statuses recorded in metrics.
const (
	statusOK       = "ok"
	statusFailed   = "failed"
	statusPanicked = "panicked"
	statusSkipped  = "skipped"
)

// Task is one named unit of work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool runs tasks with at most limit of them in flight. A failing task
// never cancels its siblings.
type Pool struct {
	limit  int
	name   string
	logger logger.Logger
}

// NewPool creates a pool; a limit below one means runtime.NumCPU().
func NewPool(limit int, opts ...Option) *Pool {
	if limit < 1 {
		limit = runtime.NumCPU()
	}
	p := &Pool{
		limit:  limit,
		name:   "pool",
		logger: logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named(p.name)
	return p
}

// Limit returns the concurrency limit.
func (p *Pool) Limit() int { return p.limit }

// Run executes every task and waits for all of them. Panics are recovered
// into errors. Tasks not yet started when ctx is cancelled are skipped with
// ctx.Err(). The result combines every task error in task order, each
// prefixed with its task name, or is nil when all tasks succeeded.
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	errs := make([]error, len(tasks))

	var g errgroup.Group
	g.SetLimit(p.limit)
	for i, t := range tasks {
		g.Go(func() error {
			errs[i] = p.runTask(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Combine(errs...)
}

func (p *Pool) runTask(ctx context.Context, t Task) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.RecordWorkerTask(statusSkipped)
		return fmt.Errorf("%s: %w", t.Name, ctxErr)
	}

	metrics.AddWorkerActive(1)
	start := time.Now()
	defer func() {
		metrics.AddWorkerActive(-1)
		if r := recover(); r != nil {
			metrics.RecordWorkerTask(statusPanicked)
			metrics.RecordErrorByComponent("worker", "panic")
			p.logger.Error(ctx, "task panicked",
				logger.String("task", t.Name),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%s: %w: %v", t.Name, ErrTaskPanicked, r)
			return
		}
		if err != nil {
			metrics.RecordWorkerTask(statusFailed)
			metrics.RecordErrorByComponent("worker", "task_failed")
			metrics.RecordErrorLatency("worker", "task_failed", float64(time.Since(start).Milliseconds()))
			p.logger.Debug(ctx, "task failed", logger.String("task", t.Name), logger.Error(err))
			err = fmt.Errorf("%s: %w", t.Name, err)
			return
		}
		metrics.RecordWorkerTask(statusOK)
	}()

	return t.Run(ctx)
}
