package queue

import (
	"context"
	"time"

	"github.com/xraph/delayq/id"
)

// Entry pairs a task ID with its scheduled run time. The run time becomes
// the queue score, expressed as epoch milliseconds.
type Entry struct {
	TaskID id.TaskID
	RunAt  time.Time
}

// Queue is the shared ordered claim queue: a remote structure mapping task
// IDs to a due-time score. It is a coordination point only — the task
// store remains the system of record, and the queue can be rebuilt from
// it at any time.
//
// Claim is the sole cross-process mutual-exclusion primitive. Its
// atomicity against concurrent callers is a hard requirement: among any
// number of dispatchers racing for the same ID, exactly one observes a
// successful removal.
type Queue interface {
	// Enqueue upserts a task ID with its run-time score. Re-adding an
	// existing ID updates its score.
	Enqueue(ctx context.Context, taskID id.TaskID, runAt time.Time) error

	// EnqueueBatch upserts a batch of entries in one round trip.
	EnqueueBatch(ctx context.Context, entries []Entry) error

	// Claim atomically removes the task ID and reports whether this
	// caller performed the removal. False means another dispatcher won
	// the race (or the ID was never present) — expected steady-state
	// contention, not an error.
	Claim(ctx context.Context, taskID id.TaskID) (bool, error)

	// Remove deletes the given IDs from the queue, returning how many
	// were present. Used by cancellation.
	Remove(ctx context.Context, taskIDs ...id.TaskID) (int64, error)

	// NextDue returns up to limit task IDs whose score is at or before
	// the given instant, ascending by score, starting at offset. An
	// empty slice means nothing is due.
	NextDue(ctx context.Context, before time.Time, offset, limit int64) ([]id.TaskID, error)
}

// Score converts a run time to its queue score: epoch milliseconds.
// The score is meaningless once the task leaves the ready state.
func Score(runAt time.Time) float64 {
	return float64(runAt.UnixMilli())
}
