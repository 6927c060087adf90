// Package runner provides the dispatch engine — the polling loop, the
// claim protocol, and the timeout-bounded execution wrapper.
//
// # The Loop
//
// [Dispatcher.Run] repeats [Dispatcher.Fire] until its context is
// cancelled. Each fire pulls at most one due task ID from the claim
// queue, races other dispatchers for it with an atomic remove, loads
// the record, conditionally flips it ready→running in the store, and
// executes it through the [Executor] bounded by the task's timeout.
// When nothing is due, the loop sleeps a jittered backoff interval.
//
// # Exactly-once claiming
//
// Two independent exclusivity layers protect each task. The queue claim
// (atomic ZREM) is the fast-path contention resolver among pollers. The
// store's conditional start is the authoritative source-of-truth guard,
// covering paths that bypass the queue such as [Dispatcher.FireID].
//
// # Failure classification
//
// Lost races are silent no-ops. A claimed ID missing from the store is
// logged and abandoned. A taskable timeout or error becomes the task's
// terminal state and result. Store or queue failures propagate out of
// Fire; Run logs them and backs off before retrying the loop.
package runner
