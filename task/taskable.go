package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xraph/delayq"
)

// Taskable is an executable capability resolved by a task's service name.
// Run returns the result string recorded on successful completion. Any
// error (or panic, when the recover middleware is installed) marks the
// task failed with the error text as its result.
//
// Run receives a context that is cancelled when the task's timeout
// elapses or the dispatcher shuts down; a taskable that ignores the
// signal keeps running in the background with its result discarded.
type Taskable interface {
	Run(ctx context.Context, t *Task) (string, error)
}

// TaskableFunc adapts an ordinary function to the Taskable interface.
type TaskableFunc func(ctx context.Context, t *Task) (string, error)

// Run implements Taskable.
func (f TaskableFunc) Run(ctx context.Context, t *Task) (string, error) {
	return f(ctx, t)
}

// Registry maps service names to taskables. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	taskables map[string]Taskable
}

// NewRegistry creates an empty taskable registry.
func NewRegistry() *Registry {
	return &Registry{
		taskables: make(map[string]Taskable),
	}
}

// Register binds a taskable to a service name. Registering the same
// service twice returns delayq.ErrAlreadyRegistered.
func (r *Registry) Register(service string, t Taskable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.taskables[service]; exists {
		return fmt.Errorf("%w: %s", delayq.ErrAlreadyRegistered, service)
	}
	r.taskables[service] = t
	return nil
}

// Resolve returns the taskable for the given service name, or
// delayq.ErrNoTaskable when nothing is registered under it.
func (r *Registry) Resolve(service string) (Taskable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.taskables[service]
	if !ok {
		return nil, fmt.Errorf("%w: %s", delayq.ErrNoTaskable, service)
	}
	return t, nil
}

// Services returns all registered service names.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.taskables))
	for name := range r.taskables {
		names = append(names, name)
	}
	return names
}

// Define registers a typed taskable. The generic handler is wrapped in a
// closure that JSON-unmarshals the task's params into P before calling
// the typed handler.
//
// This is a package-level generic function because Go does not allow
// generic methods on non-generic receiver types.
func Define[P any](r *Registry, service string, handler func(ctx context.Context, t *Task, params P) (string, error)) error {
	return r.Register(service, TaskableFunc(func(ctx context.Context, t *Task) (string, error) {
		var p P
		if len(t.Params) > 0 {
			if err := json.Unmarshal(t.Params, &p); err != nil {
				return "", fmt.Errorf("unmarshal params for service %q: %w", service, err)
			}
		}
		return handler(ctx, t, p)
	}))
}
