package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/delayq/task"
)

// Recover returns middleware that recovers from panics in the taskable
// chain. Panics are converted to errors and logged with a stack trace,
// so a panicking taskable ends as a failed task instead of taking down
// the dispatcher.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) (result string, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("taskable panicked",
					slog.String("task_id", t.ID.String()),
					slog.String("service", t.Service),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				result = ""
				retErr = fmt.Errorf("panic in service %s: %v", t.Service, r)
			}
		}()
		return next(ctx)
	}
}
