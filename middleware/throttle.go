package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/xraph/delayq/task"
)

// Throttle returns middleware that waits for a token from the given
// rate limiter before executing the taskable. It bounds the sustained
// execution rate of a dispatcher instance without dropping claimed
// tasks — the wait respects the execution context, so a timeout or
// shutdown cancels it.
func Throttle(limiter *rate.Limiter) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) (string, error) {
		if err := limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("throttle service %s: %w", t.Service, err)
		}
		return next(ctx)
	}
}
