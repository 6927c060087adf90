package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/delayq/middleware"
	"github.com/xraph/delayq/task"
)

// ResultTimedOut is the diagnostic result recorded when a task exceeds
// its execution deadline.
const ResultTimedOut = "task execution timed out"

// Executor runs a single claimed task through middleware and the resolved
// taskable, bounded by the task's timeout, then persists the terminal
// state. The dispatcher's conditional start has already established
// exclusive ownership, so the terminal write is unconditional.
type Executor struct {
	registry *task.Registry
	store    task.Store
	mw       middleware.Middleware
	logger   *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(registry *task.Registry, store task.Store, logger *slog.Logger, mws ...middleware.Middleware) *Executor {
	return &Executor{
		registry: registry,
		store:    store,
		mw:       middleware.Chain(mws...),
		logger:   logger,
	}
}

// Execute runs a task already transitioned to running.
// On success: terminal state completed, result = the taskable's value.
// On deadline: terminal state timedout, result = ResultTimedOut.
// On any taskable error (including an unresolvable service name):
// terminal state failed, result = the error text.
//
// Task-local failures never propagate; the returned error is reserved
// for store failures on the terminal write.
func (e *Executor) Execute(ctx context.Context, t *task.Task) error {
	taskable, err := e.registry.Resolve(t.Service)
	if err != nil {
		e.logger.Warn("task service unresolvable",
			slog.String("task_id", t.ID.String()),
			slog.String("service", t.Service),
		)
		return e.end(ctx, t, task.StateFailed, err.Error())
	}

	terminal := func(ctx context.Context) (string, error) {
		return taskable.Run(ctx, t)
	}
	work := func(ctx context.Context) (string, error) {
		return e.mw(ctx, t, terminal)
	}

	value, timedOut, err := RunWithTimeout(ctx, work, t.Timeout)
	switch {
	case timedOut:
		e.logger.Warn("task timed out",
			slog.String("task_id", t.ID.String()),
			slog.String("service", t.Service),
			slog.Duration("timeout", t.Timeout),
		)
		return e.end(ctx, t, task.StateTimedOut, ResultTimedOut)
	case err != nil:
		e.logger.Warn("task failed",
			slog.String("task_id", t.ID.String()),
			slog.String("service", t.Service),
			slog.String("error", err.Error()),
		)
		return e.end(ctx, t, task.StateFailed, err.Error())
	default:
		e.logger.Info("task completed",
			slog.String("task_id", t.ID.String()),
			slog.String("service", t.Service),
		)
		return e.end(ctx, t, task.StateCompleted, value)
	}
}

// end stamps the terminal state and persists it.
func (e *Executor) end(ctx context.Context, t *task.Task, state task.State, result string) error {
	now := time.Now().UTC()
	t.State = state
	t.Result = result
	t.EndedAt = &now
	t.UpdatedAt = now

	// The task is claimed and its outcome decided; the terminal write
	// must land even when the caller's context is already cancelled
	// (timeout fired, FireID caller shutting down).
	if err := e.store.End(context.WithoutCancel(ctx), t); err != nil {
		e.logger.Error("failed to persist terminal state",
			slog.String("task_id", t.ID.String()),
			slog.String("state", string(state)),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
