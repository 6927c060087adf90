package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/delayq/task"
)

// Logging returns middleware that logs task start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) (string, error) {
		logger.Info("task started",
			slog.String("task_id", t.ID.String()),
			slog.String("service", t.Service),
		)

		start := time.Now()
		result, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("task failed",
				slog.String("task_id", t.ID.String()),
				slog.String("service", t.Service),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("task completed",
				slog.String("task_id", t.ID.String()),
				slog.String("service", t.Service),
				slog.Duration("elapsed", elapsed),
			)
		}

		return result, err
	}
}
