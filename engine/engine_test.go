package engine_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/backoff"
	"github.com/xraph/delayq/engine"
	"github.com/xraph/delayq/queue"
	"github.com/xraph/delayq/store/memory"
	"github.com/xraph/delayq/task"
)

func setupEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *memory.Store, *queue.Memory) {
	t.Helper()
	s := memory.New()
	q := queue.NewMemory()

	opts = append([]engine.Option{
		engine.WithBackoff(backoff.NewConstant(time.Millisecond)),
	}, opts...)

	e, err := engine.New(s, q, opts...)
	if err != nil {
		t.Fatalf("new engine error: %v", err)
	}
	return e, s, q
}

func TestNew_NoStore(t *testing.T) {
	_, err := engine.New(nil, queue.NewMemory())
	if !errors.Is(err, delayq.ErrNoStore) {
		t.Fatalf("err = %v, want ErrNoStore", err)
	}
}

func TestNew_NoQueue(t *testing.T) {
	_, err := engine.New(memory.New(), nil)
	if !errors.Is(err, delayq.ErrNoQueue) {
		t.Fatalf("err = %v, want ErrNoQueue", err)
	}
}

func TestEngine_StartStop(t *testing.T) {
	e, _, _ := setupEngine(t, engine.WithConcurrency(2))

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	// Double start should be a no-op.
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("double-start error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Stop(ctx); err != nil {
		t.Fatalf("stop error: %v", err)
	}
	// Double stop should be a no-op.
	if err := e.Stop(ctx); err != nil {
		t.Fatalf("double-stop error: %v", err)
	}
}

func TestEngine_ProcessesTask(t *testing.T) {
	e, s, _ := setupEngine(t)

	var got atomic.Value
	err := engine.Define(e, "greet", func(_ context.Context, _ *task.Task, p struct{ Name string }) (string, error) {
		got.Store(p.Name)
		return "greeted " + p.Name, nil
	})
	if err != nil {
		t.Fatalf("define error: %v", err)
	}

	tk := task.New("greet", time.Now().Add(-time.Second),
		task.WithParams([]byte(`{"Name":"Alice"}`)),
	)
	if err := e.Submit(context.Background(), tk); err != nil {
		t.Fatalf("submit error: %v", err)
	}

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for got.Load() == nil {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the task to be processed")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Stop(ctx); err != nil {
		t.Fatalf("stop error: %v", err)
	}

	if name := got.Load(); name != "Alice" {
		t.Errorf("params.Name = %v, want Alice", name)
	}

	final, err := s.Find(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if final.State != task.StateCompleted {
		t.Errorf("State = %q, want %q", final.State, task.StateCompleted)
	}
	if final.Result != "greeted Alice" {
		t.Errorf("Result = %q, want %q", final.Result, "greeted Alice")
	}
}

func TestEngine_StartReseedsQueue(t *testing.T) {
	e, s, q := setupEngine(t)

	// A record written without an enqueue, as after a crash in the
	// submit gap.
	orphan := task.New("recover.me", time.Now().Add(time.Hour))
	if err := s.Add(context.Background(), orphan); err != nil {
		t.Fatalf("add error: %v", err)
	}

	var ran atomic.Bool
	err := e.Register("recover.me", task.TaskableFunc(func(_ context.Context, _ *task.Task) (string, error) {
		ran.Store(true)
		return "", nil
	}))
	if err != nil {
		t.Fatalf("register error: %v", err)
	}

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.Stop(ctx)
	}()

	if !q.Contains(orphan.ID) {
		t.Error("expected start to re-enqueue the orphaned ready record")
	}
	if ran.Load() {
		t.Error("future task must not have run")
	}
}

func TestEngine_CancelThroughFacade(t *testing.T) {
	e, s, _ := setupEngine(t)
	ctx := context.Background()

	tk := task.New("later", time.Now().Add(time.Hour))
	if err := e.Submit(ctx, tk); err != nil {
		t.Fatalf("submit error: %v", err)
	}

	affected, err := e.Cancel(ctx, "changed our minds", tk.ID)
	if err != nil {
		t.Fatalf("cancel error: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected = %d, want 1", affected)
	}

	got, err := s.Find(ctx, tk.ID)
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if got.State != task.StateCancelled {
		t.Errorf("State = %q, want %q", got.State, task.StateCancelled)
	}
}

func TestEngine_StopTimeoutThenRetry(t *testing.T) {
	e, s, _ := setupEngine(t)

	started := make(chan struct{})
	release := make(chan struct{})
	err := e.Register("blocker", task.TaskableFunc(func(_ context.Context, _ *task.Task) (string, error) {
		close(started)
		<-release
		return "unblocked", nil
	}))
	if err != nil {
		t.Fatalf("register error: %v", err)
	}

	tk := task.New("blocker", time.Now().Add(-time.Second))
	if err := e.Submit(context.Background(), tk); err != nil {
		t.Fatalf("submit error: %v", err)
	}

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the task to start")
	}

	// The in-flight fire is still executing, so a Stop bounded by an
	// expired context reports the deadline without the engine counting
	// as stopped.
	expired, cancelExpired := context.WithCancel(context.Background())
	cancelExpired()
	if err := e.Stop(expired); !errors.Is(err, context.Canceled) {
		t.Fatalf("stop err = %v, want context.Canceled", err)
	}

	// While the old loops drain, Start must not launch a second set on
	// the same dispatchers.
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start during drain error: %v", err)
	}

	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Stop(ctx); err != nil {
		t.Fatalf("retried stop error: %v", err)
	}

	got, err := s.Find(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if got.State != task.StateCompleted {
		t.Errorf("State = %q, want %q", got.State, task.StateCompleted)
	}
	if got.Result != "unblocked" {
		t.Errorf("Result = %q, want %q", got.Result, "unblocked")
	}
}
