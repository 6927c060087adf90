package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/backoff"
	"github.com/xraph/delayq/id"
	"github.com/xraph/delayq/middleware"
	"github.com/xraph/delayq/queue"
	"github.com/xraph/delayq/task"
)

// Dispatcher is the polling loop at the heart of delayq. Any number of
// dispatcher instances (goroutines or processes) run the same loop
// concurrently against the same queue and store with no central
// coordinator; the queue's atomic claim and the store's conditional
// start keep each due task with exactly one winner.
type Dispatcher struct {
	store    task.Store
	queue    queue.Queue
	executor *Executor
	cfg      delayq.Config
	idle     backoff.Strategy
	workerID id.WorkerID
	logger   *slog.Logger

	// mws is consumed when the executor is built in NewDispatcher.
	mws []middleware.Middleware
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg delayq.Config) Option {
	return func(d *Dispatcher) { d.cfg = cfg }
}

// WithBackoff sets the idle poll backoff strategy. The default is a
// jittered uniform sleep over the configured BackoffMin..BackoffMax.
func WithBackoff(s backoff.Strategy) Option {
	return func(d *Dispatcher) { d.idle = s }
}

// WithMiddleware sets the execution middleware chain.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(d *Dispatcher) { d.mws = mws }
}

// NewDispatcher creates a Dispatcher polling the given queue and
// executing via taskables resolved from registry.
func NewDispatcher(store task.Store, q queue.Queue, registry *task.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		queue:    q,
		cfg:      delayq.DefaultConfig(),
		workerID: id.NewWorkerID(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.logger = d.logger.With(slog.String("worker_id", d.workerID.String()))
	if d.idle == nil {
		d.idle = backoff.NewUniform(d.cfg.BackoffMin, d.cfg.BackoffMax)
	}
	d.executor = NewExecutor(registry, store, d.logger, d.mws...)
	return d
}

// WorkerID returns the dispatcher's unique instance identifier.
func (d *Dispatcher) WorkerID() id.WorkerID { return d.workerID }

// Submit persists the task record and then enqueues its ID with the
// scheduled run time as score. The two writes are separate calls: a
// crash in between leaves a record visible to Initialize-driven
// recovery but not yet schedulable until recovery runs.
func (d *Dispatcher) Submit(ctx context.Context, t *task.Task) error {
	if err := d.store.Add(ctx, t); err != nil {
		return err
	}
	return d.queue.Enqueue(ctx, t.ID, t.RunAt)
}

// SubmitAll persists a batch of task records and enqueues them with a
// single batched score mapping.
func (d *Dispatcher) SubmitAll(ctx context.Context, ts []*task.Task) error {
	if len(ts) == 0 {
		return nil
	}

	if err := d.store.AddBatch(ctx, ts); err != nil {
		return err
	}

	entries := make([]queue.Entry, len(ts))
	for i, t := range ts {
		entries[i] = queue.Entry{TaskID: t.ID, RunAt: t.RunAt}
	}
	return d.queue.EnqueueBatch(ctx, entries)
}

// Cancel removes the IDs from the queue and transitions matching ready
// records to cancelled, recording reason as their result. It returns
// the count of records actually cancelled. A task already claimed (no
// longer in the queue) cannot be cancelled by this path — cancellation
// races with the claim and the store's state filter is the tie-break.
func (d *Dispatcher) Cancel(ctx context.Context, reason string, taskIDs ...id.TaskID) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}

	if _, err := d.queue.Remove(ctx, taskIDs...); err != nil {
		return 0, err
	}
	return d.store.Cancel(ctx, reason, taskIDs...)
}

// Find retrieves a task record from the store by ID.
func (d *Dispatcher) Find(ctx context.Context, taskID id.TaskID) (*task.Task, error) {
	return d.store.Find(ctx, taskID)
}

// Initialize re-seeds the claim queue from the store: every record in
// ready state is enqueued with its scheduled run time as score. The
// queue is not the system of record, so this rebuild is always safe and
// idempotent. Call it on cold start and as the explicit recovery path
// after a queue data loss or a crash between store write and enqueue.
func (d *Dispatcher) Initialize(ctx context.Context) error {
	ready, err := d.store.ListReady(ctx)
	if err != nil {
		return err
	}
	if len(ready) == 0 {
		return nil
	}

	entries := make([]queue.Entry, len(ready))
	for i, t := range ready {
		entries[i] = queue.Entry{TaskID: t.ID, RunAt: t.RunAt}
	}
	if err := d.queue.EnqueueBatch(ctx, entries); err != nil {
		return err
	}

	d.logger.Info("re-enqueued ready tasks", slog.Int("count", len(entries)))
	return nil
}

// Run loops until ctx is cancelled, calling Fire each iteration.
// Store or queue failures do not terminate the loop: they are logged
// and followed by an error backoff sleep before the next attempt.
// Cancellation is observed at the top of each iteration and inside
// every blocking sleep; an in-flight fire always completes.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return nil
		default:
		}

		if err := d.Fire(ctx); err != nil {
			if ctx.Err() != nil {
				d.logger.Info("dispatcher stopped")
				return nil
			}
			d.logger.Error("fire failed", slog.String("error", err.Error()))
			sleep(ctx, d.cfg.ErrorBackoff)
		}
	}
}

// Fire performs one poll-claim-execute-persist cycle.
//
// It pulls at most one due task ID, claims it with an atomic queue
// remove, loads the record, conditionally starts it, and executes it.
// Losing the claim race or the conditional start is expected contention
// and a silent no-op. A record missing from the store is logged and
// abandoned. Returned errors are store or queue failures only.
func (d *Dispatcher) Fire(ctx context.Context) error {
	now := time.Now().UTC()

	due, err := d.queue.NextDue(ctx, now, d.cfg.FetchOffset, d.cfg.FetchLimit)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		sleep(ctx, d.idle.Next())
		return nil
	}

	taskID := due[0]
	claimed, err := d.queue.Claim(ctx, taskID)
	if err != nil {
		return err
	}
	if !claimed {
		// Another dispatcher won the race for this ID.
		d.logger.Debug("lost claim race", slog.String("task_id", taskID.String()))
		return nil
	}

	// The claim succeeded, so this instance owns the task's outcome.
	// Detach from loop cancellation: shutdown is observed at the loop
	// top and inside the idle sleep, never mid-fire. A cancelled loop
	// context must not abort the execution or the terminal write and
	// strand the record in running.
	return d.FireID(context.WithoutCancel(ctx), taskID)
}

// FireID loads and executes a task by ID, bypassing the queue. The
// store's conditional start still guards against double execution, so
// FireID is safe to call from recovery or testing paths.
func (d *Dispatcher) FireID(ctx context.Context, taskID id.TaskID) error {
	t, err := d.store.Find(ctx, taskID)
	if err != nil {
		if errors.Is(err, delayq.ErrTaskNotFound) {
			// Claimed ID absent from the store: enqueue/store-write gap
			// or store inconsistency. Non-fatal.
			d.logger.Warn("claimed task not found in store", slog.String("task_id", taskID.String()))
			return nil
		}
		return err
	}
	return d.fire(ctx, t)
}

// fire conditionally starts the task and hands it to the executor.
func (d *Dispatcher) fire(ctx context.Context, t *task.Task) error {
	now := time.Now().UTC()
	t.StartedAt = &now
	t.UpdatedAt = now

	affected, err := d.store.Start(ctx, t)
	if err != nil {
		return err
	}
	if affected == 0 {
		// Another process already progressed this record. Defense in
		// depth beyond the queue-level claim.
		d.logger.Debug("task no longer ready",
			slog.String("task_id", t.ID.String()),
			slog.String("state", string(t.State)),
		)
		return nil
	}

	t.State = task.StateRunning
	return d.executor.Execute(ctx, t)
}

// sleep blocks for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
