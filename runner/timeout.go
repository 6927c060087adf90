package runner

import (
	"context"
	"time"
)

// outcome carries a unit of work's return values across the goroutine
// boundary.
type outcome struct {
	value string
	err   error
}

// RunWithTimeout executes work with a wall-clock deadline.
//
// A timeout of zero or less runs work synchronously on the caller with
// no bound; its error is returned directly.
//
// A positive timeout runs work on its own goroutine with a context that
// is cancelled when the deadline elapses. If the deadline fires first,
// RunWithTimeout returns timedOut = true and does not retry. The
// cancellation signals the work to stop; a unit of work that ignores
// its context keeps running in the background with its result
// discarded, which is a contract violation on the taskable's side.
func RunWithTimeout(ctx context.Context, work func(context.Context) (string, error), timeout time.Duration) (value string, timedOut bool, err error) {
	if timeout <= 0 {
		value, err = work(ctx)
		return value, false, err
	}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		v, workErr := work(workCtx)
		done <- outcome{value: v, err: workErr}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.value, false, out.err
	case <-timer.C:
		return "", true, nil
	}
}
