// Package engine wires the delayq subsystems together: the task store,
// the claim queue, the taskable registry, the middleware chain, and a
// set of competing dispatcher loops.
//
// This package exists to break the import cycle: the root delayq package
// defines Entity and Config (imported by task, queue, runner) and so
// cannot import those packages back. The engine package sits above all
// subsystem packages and below the application layer.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/backoff"
	"github.com/xraph/delayq/id"
	mw "github.com/xraph/delayq/middleware"
	"github.com/xraph/delayq/queue"
	"github.com/xraph/delayq/runner"
	"github.com/xraph/delayq/task"
)

// Engine runs a set of competing dispatchers against one store and one
// claim queue. All dispatchers share the registry and middleware chain;
// each carries its own worker identity and jitter source.
type Engine struct {
	store    task.Store
	queue    queue.Queue
	registry *task.Registry
	cfg      delayq.Config
	bo       backoff.Strategy
	logger   *slog.Logger
	mws      []mw.Middleware

	concurrency int

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	dispatchers []*runner.Dispatcher

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithConfig replaces the default dispatcher configuration.
func WithConfig(cfg delayq.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithConcurrency sets how many dispatcher loops the engine runs.
// The default is 1.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// WithBackoff sets the idle poll backoff strategy shared by all
// dispatchers. If not set, each dispatcher jitters independently over
// the configured BackoffMin..BackoffMax.
func WithBackoff(b backoff.Strategy) Option {
	return func(e *Engine) { e.bo = b }
}

// WithMiddleware appends middleware after the default stack.
func WithMiddleware(mws ...mw.Middleware) Option {
	return func(e *Engine) { e.mws = append(e.mws, mws...) }
}

// WithTracerProvider sets a custom OTel TracerProvider. When set, the
// tracing middleware uses this provider instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider. When set, the
// metrics middleware uses this provider instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.meterProvider = mp }
}

// New builds an Engine over the given store and claim queue.
func New(store task.Store, q queue.Queue, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, delayq.ErrNoStore
	}
	if q == nil {
		return nil, delayq.ErrNoQueue
	}

	e := &Engine{
		store:       store,
		queue:       q,
		registry:    task.NewRegistry(),
		cfg:         delayq.DefaultConfig(),
		logger:      slog.Default(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.concurrency < 1 {
		e.concurrency = 1
	}

	tracingMw := mw.Tracing()
	if e.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(e.tracerProvider.Tracer("github.com/xraph/delayq"))
	}
	metricsMw := mw.Metrics()
	if e.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(e.meterProvider.Meter("github.com/xraph/delayq"))
	}

	// Default stack: recover → tracing → metrics → logging, then any
	// user-supplied middleware.
	allMws := []mw.Middleware{
		mw.Recover(e.logger),
		tracingMw,
		metricsMw,
		mw.Logging(e.logger),
	}
	allMws = append(allMws, e.mws...)

	e.dispatchers = make([]*runner.Dispatcher, e.concurrency)
	for i := range e.dispatchers {
		dOpts := []runner.Option{
			runner.WithLogger(e.logger),
			runner.WithConfig(e.cfg),
			runner.WithMiddleware(allMws...),
		}
		if e.bo != nil {
			dOpts = append(dOpts, runner.WithBackoff(e.bo))
		}
		e.dispatchers[i] = runner.NewDispatcher(store, q, e.registry, dOpts...)
	}

	return e, nil
}

// Registry returns the engine's taskable registry.
func (e *Engine) Registry() *task.Registry {
	return e.registry
}

// Register binds a taskable to a service name on the shared registry.
func (e *Engine) Register(service string, t task.Taskable) error {
	return e.registry.Register(service, t)
}

// Define registers a typed taskable on the engine's registry.
func Define[P any](e *Engine, service string, handler func(ctx context.Context, t *task.Task, params P) (string, error)) error {
	return task.Define(e.registry, service, handler)
}

// Submit persists and schedules a task.
func (e *Engine) Submit(ctx context.Context, t *task.Task) error {
	return e.dispatchers[0].Submit(ctx, t)
}

// SubmitAll persists and schedules a batch of tasks.
func (e *Engine) SubmitAll(ctx context.Context, ts []*task.Task) error {
	return e.dispatchers[0].SubmitAll(ctx, ts)
}

// Cancel cancels ready tasks, recording reason as their result.
func (e *Engine) Cancel(ctx context.Context, reason string, taskIDs ...id.TaskID) (int64, error) {
	return e.dispatchers[0].Cancel(ctx, reason, taskIDs...)
}

// Find retrieves a task record by ID.
func (e *Engine) Find(ctx context.Context, taskID id.TaskID) (*task.Task, error) {
	return e.dispatchers[0].Find(ctx, taskID)
}

// Initialize re-seeds the claim queue from the store's ready records.
func (e *Engine) Initialize(ctx context.Context) error {
	return e.dispatchers[0].Initialize(ctx)
}

// Start re-seeds the claim queue and launches the dispatcher loops.
// Start is a no-op when the engine is already running.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return nil
	}

	if err := e.Initialize(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.stopped = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(len(e.dispatchers))
	for _, d := range e.dispatchers {
		go func(d *runner.Dispatcher) {
			defer wg.Done()
			_ = d.Run(runCtx) //nolint:errcheck // Run only returns nil on cancellation
		}(d)
	}

	stopped := e.stopped
	go func() {
		wg.Wait()
		close(stopped)
	}()

	e.logger.Info("engine started", slog.Int("dispatchers", len(e.dispatchers)))
	return nil
}

// Stop signals all dispatcher loops to exit and waits for them, bounded
// by ctx. In-flight fires complete before their loops return.
// Stop is a no-op when the engine is not running.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel == nil {
		return nil
	}

	e.cancel()

	select {
	case <-e.stopped:
		// Only now may Start launch fresh loops: the dispatchers and
		// their per-instance jitter sources are single-loop state.
		e.cancel = nil
		e.logger.Info("engine stopped")
		return nil
	case <-ctx.Done():
		// Loops are still draining. The engine stays marked running so
		// a premature Start cannot race the old loops; retry Stop to
		// finish the wait.
		return ctx.Err()
	}
}
