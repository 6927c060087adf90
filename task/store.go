package task

import (
	"context"

	"github.com/xraph/delayq/id"
)

// Store defines the persistence contract for task records. The store is
// the system of record: the claim queue can always be rebuilt from it.
//
// Start and Cancel carry the exclusivity semantics the dispatch protocol
// relies on — both are compare-and-set operations keyed on the current
// state being StateReady, and both must be atomic at the row level.
type Store interface {
	// Add persists a new task in ready state.
	Add(ctx context.Context, t *Task) error

	// AddBatch persists a batch of new tasks in ready state.
	AddBatch(ctx context.Context, ts []*Task) error

	// Find retrieves a task by ID. Returns delayq.ErrTaskNotFound when
	// no record exists.
	Find(ctx context.Context, taskID id.TaskID) (*Task, error)

	// Start conditionally transitions the task to running, persisting
	// its StartedAt stamp. It succeeds only if the stored state is still
	// ready and returns the number of affected rows (0 or 1). Zero means
	// another process already progressed the record.
	Start(ctx context.Context, t *Task) (int64, error)

	// End writes the terminal state, result, and EndedAt unconditionally.
	// Exclusive ownership is established by Start; End does not re-check.
	End(ctx context.Context, t *Task) error

	// Cancel transitions the given tasks to cancelled, recording reason
	// as their result. Only tasks still in ready state are affected; the
	// returned count is the number actually cancelled.
	Cancel(ctx context.Context, reason string, taskIDs ...id.TaskID) (int64, error)

	// ListReady returns all tasks currently in ready state, for cold-start
	// recovery of the claim queue.
	ListReady(ctx context.Context) ([]*Task, error)
}
