// Package middleware provides composable middleware for task execution.
// Middleware wraps taskable calls synchronously and can modify execution
// (recover from panics, log, throttle, add tracing, etc.).
package middleware

import (
	"context"

	"github.com/xraph/delayq/task"
)

// Handler is the terminal function that executes the taskable and
// returns its result value.
type Handler func(ctx context.Context) (string, error)

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the task being executed, and the next handler to
// call. Middleware MUST call next to continue the chain (unless
// short-circuiting on error).
type Middleware func(ctx context.Context, t *task.Task, next Handler) (string, error)

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, throttle) executes as:
//
//	logging → recover → throttle → taskable
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, t *task.Task, next Handler) (string, error) {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) (string, error) {
				return mw(ctx, t, prev)
			}
		}
		return h(ctx)
	}
}
