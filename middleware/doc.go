// Package middleware provides composable middleware for task execution.
//
// A [Middleware] is a function that wraps a taskable invocation. Middleware
// are composed into a chain using [Chain] and applied before each task
// executes. They are applied right-to-left: the first middleware in the
// slice is the outermost wrapper.
//
//	// logging → recover → taskable
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging] — logs task ID, service, duration, and outcome at each execution
//   - [Recover] — catches panics and converts them to task failures
//   - [Tracing] — wraps execution in an OpenTelemetry span
//   - [Metrics] — records per-service duration and outcome counters
//   - [Throttle] — waits on a token-bucket rate limiter before execution
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, t *task.Task, next middleware.Handler) (string, error) {
//	        // pre-processing
//	        result, err := next(ctx)
//	        // post-processing
//	        return result, err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., rate limiting).
package middleware
