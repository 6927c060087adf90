// Package memory provides a fully in-memory task store. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/id"
	"github.com/xraph/delayq/task"
)

// Ensure Store satisfies the task contract at compile time.
var _ task.Store = (*Store)(nil)

// Store is an in-memory implementation of task.Store. It enforces the
// full state machine, including the conditional ready→running start
// that gives the dispatch protocol its authoritative exclusivity layer.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*task.Task
}

// New returns a new empty Store.
func New() *Store {
	return &Store{tasks: make(map[string]*task.Task)}
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// Add persists a new task in ready state.
func (m *Store) Add(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(t)
}

// AddBatch persists a batch of new tasks. The batch fails as a whole on
// the first duplicate.
func (m *Store) AddBatch(_ context.Context, ts []*task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range ts {
		if _, exists := m.tasks[t.ID.String()]; exists {
			return delayq.ErrTaskAlreadyExists
		}
	}
	for _, t := range ts {
		if err := m.addLocked(t); err != nil {
			return err
		}
	}
	return nil
}

func (m *Store) addLocked(t *task.Task) error {
	key := t.ID.String()
	if _, exists := m.tasks[key]; exists {
		return delayq.ErrTaskAlreadyExists
	}
	cp := *t
	m.tasks[key] = &cp
	return nil
}

// Find retrieves a task by ID.
func (m *Store) Find(_ context.Context, taskID id.TaskID) (*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[taskID.String()]
	if !ok {
		return nil, delayq.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

// Start conditionally transitions the task to running. Exactly one
// concurrent caller succeeds: the check and the write happen under the
// store lock.
func (m *Store) Start(_ context.Context, t *task.Task) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.tasks[t.ID.String()]
	if !ok {
		return 0, delayq.ErrTaskNotFound
	}
	if stored.State != task.StateReady {
		return 0, nil
	}

	stored.State = task.StateRunning
	if t.StartedAt != nil {
		st := *t.StartedAt
		stored.StartedAt = &st
	}
	stored.UpdatedAt = time.Now().UTC()
	return 1, nil
}

// End writes the terminal state, result, and EndedAt unconditionally,
// provided the transition out of the stored state is legal. Attempts
// to leave a terminal state are rejected.
func (m *Store) End(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.tasks[t.ID.String()]
	if !ok {
		return delayq.ErrTaskNotFound
	}
	if !stored.State.CanTransition(t.State) {
		return delayq.ErrInvalidTransition
	}

	stored.State = t.State
	stored.Result = t.Result
	if t.EndedAt != nil {
		et := *t.EndedAt
		stored.EndedAt = &et
	}
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel transitions matching ready tasks to cancelled, recording
// reason as their result.
func (m *Store) Cancel(_ context.Context, reason string, taskIDs ...id.TaskID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var affected int64
	for _, tid := range taskIDs {
		stored, ok := m.tasks[tid.String()]
		if !ok || stored.State != task.StateReady {
			continue
		}
		stored.State = task.StateCancelled
		stored.Result = reason
		et := now
		stored.EndedAt = &et
		stored.UpdatedAt = now
		affected++
	}
	return affected, nil
}

// ListReady returns all tasks currently in ready state.
func (m *Store) ListReady(_ context.Context) ([]*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ready []*task.Task
	for _, t := range m.tasks {
		if t.State != task.StateReady {
			continue
		}
		cp := *t
		ready = append(ready, &cp)
	}
	return ready, nil
}
