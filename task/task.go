package task

import (
	"time"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/id"
)

// State represents the lifecycle state of a task.
type State string

const (
	// StateReady means the task is scheduled and waiting to be claimed.
	StateReady State = "ready"
	// StateRunning means a dispatcher is currently executing the task.
	StateRunning State = "running"
	// StateCompleted means the task finished successfully.
	StateCompleted State = "completed"
	// StateTimedOut means the task exceeded its execution deadline.
	StateTimedOut State = "timedout"
	// StateFailed means the taskable returned or raised an error.
	StateFailed State = "failed"
	// StateCancelled means the task was cancelled before it was claimed.
	StateCancelled State = "cancelled"
)

// Terminal reports whether s is a terminal state. Terminal tasks accept
// no further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateTimedOut, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the transition from s to next is legal.
// The only legal paths are ready → running → {completed, timedout, failed}
// and ready → cancelled.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateReady:
		return next == StateRunning || next == StateCancelled
	case StateRunning:
		return next == StateCompleted || next == StateTimedOut || next == StateFailed
	default:
		return false
	}
}

// Task represents a unit of work scheduled for future execution and its
// eventual outcome. The record in the store is the system of record; the
// claim queue only holds the task's ID keyed by its due time.
type Task struct {
	delayq.Entity

	ID      id.TaskID `json:"id" bun:"id,pk" bson:"_id"`
	Name    string    `json:"name" bun:"name" bson:"name"`
	Service string    `json:"service" bun:"service" bson:"service"`
	Params  []byte    `json:"params,omitempty" bun:"params" bson:"params,omitempty"`
	State   State     `json:"state" bun:"state" bson:"state"`

	// RunAt is the scheduled run time. It determines the claim-queue
	// score and is immutable after submission.
	RunAt time.Time `json:"run_at" bun:"run_at" bson:"run_at"`

	// Timeout bounds execution wall-clock time. Zero or negative means
	// unbounded, synchronous execution.
	Timeout time.Duration `json:"timeout,omitempty" bun:"timeout" bson:"timeout,omitempty"`

	// Result is set on the terminal transition only: the taskable's
	// return value, a timeout diagnostic, an error description, or a
	// cancellation reason.
	Result string `json:"result,omitempty" bun:"result" bson:"result,omitempty"`

	StartedAt *time.Time `json:"started_at,omitempty" bun:"started_at" bson:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty" bun:"ended_at" bson:"ended_at,omitempty"`
}

// New creates a ready task for the given service, scheduled at runAt.
func New(service string, runAt time.Time, opts ...Option) *Task {
	t := &Task{
		ID:      id.NewTaskID(),
		Service: service,
		State:   StateReady,
		RunAt:   runAt.UTC(),
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Option configures a task at submission time.
type Option func(*Task)

// WithName sets a human-readable task label.
func WithName(name string) Option {
	return func(t *Task) { t.Name = name }
}

// WithParams sets the opaque payload passed to the taskable.
func WithParams(params []byte) Option {
	return func(t *Task) { t.Params = params }
}

// WithTimeout bounds the task's execution wall-clock time.
// Zero or negative means unbounded.
func WithTimeout(d time.Duration) Option {
	return func(t *Task) { t.Timeout = d }
}
