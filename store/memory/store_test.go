package memory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/id"
	"github.com/xraph/delayq/store/memory"
	"github.com/xraph/delayq/task"
)

func newReadyTask() *task.Task {
	return task.New("test.service", time.Now())
}

func TestStore_AddAndFind(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	tk := newReadyTask()
	if err := s.Add(ctx, tk); err != nil {
		t.Fatalf("add error: %v", err)
	}

	got, err := s.Find(ctx, tk.ID)
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if got.ID != tk.ID {
		t.Errorf("ID = %s, want %s", got.ID, tk.ID)
	}
	if got.State != task.StateReady {
		t.Errorf("State = %q, want %q", got.State, task.StateReady)
	}
}

func TestStore_AddDuplicate(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	tk := newReadyTask()
	if err := s.Add(ctx, tk); err != nil {
		t.Fatalf("add error: %v", err)
	}
	err := s.Add(ctx, tk)
	if !errors.Is(err, delayq.ErrTaskAlreadyExists) {
		t.Fatalf("err = %v, want ErrTaskAlreadyExists", err)
	}
}

func TestStore_FindMissing(t *testing.T) {
	s := memory.New()

	_, err := s.Find(context.Background(), id.NewTaskID())
	if !errors.Is(err, delayq.ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestStore_AddBatchDuplicateFailsWhole(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	existing := newReadyTask()
	if err := s.Add(ctx, existing); err != nil {
		t.Fatalf("add error: %v", err)
	}

	fresh := newReadyTask()
	err := s.AddBatch(ctx, []*task.Task{fresh, existing})
	if !errors.Is(err, delayq.ErrTaskAlreadyExists) {
		t.Fatalf("err = %v, want ErrTaskAlreadyExists", err)
	}

	// The fresh task must not have been inserted.
	if _, err := s.Find(ctx, fresh.ID); !errors.Is(err, delayq.ErrTaskNotFound) {
		t.Errorf("expected batch to fail as a whole, found %s", fresh.ID)
	}
}

func TestStore_StartConditional(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	tk := newReadyTask()
	if err := s.Add(ctx, tk); err != nil {
		t.Fatalf("add error: %v", err)
	}

	now := time.Now().UTC()
	tk.StartedAt = &now

	affected, err := s.Start(ctx, tk)
	if err != nil {
		t.Fatalf("start error: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected = %d, want 1", affected)
	}

	// Second start must observe the record no longer ready.
	affected, err = s.Start(ctx, tk)
	if err != nil {
		t.Fatalf("second start error: %v", err)
	}
	if affected != 0 {
		t.Errorf("affected = %d, want 0 on second start", affected)
	}

	got, _ := s.Find(ctx, tk.ID)
	if got.State != task.StateRunning {
		t.Errorf("State = %q, want %q", got.State, task.StateRunning)
	}
	if got.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}
}

func TestStore_StartExactlyOnce(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	tk := newReadyTask()
	if err := s.Add(ctx, tk); err != nil {
		t.Fatalf("add error: %v", err)
	}

	const racers = 16
	var wins atomic.Int64
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			cp := *tk
			now := time.Now().UTC()
			cp.StartedAt = &now
			affected, err := s.Start(ctx, &cp)
			if err != nil {
				t.Errorf("start error: %v", err)
				return
			}
			wins.Add(affected)
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("start wins = %d, want exactly 1", wins.Load())
	}
}

func TestStore_EndTerminal(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	tk := newReadyTask()
	if err := s.Add(ctx, tk); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := s.Start(ctx, tk); err != nil {
		t.Fatalf("start error: %v", err)
	}

	now := time.Now().UTC()
	tk.State = task.StateCompleted
	tk.Result = "done"
	tk.EndedAt = &now

	if err := s.End(ctx, tk); err != nil {
		t.Fatalf("end error: %v", err)
	}

	got, _ := s.Find(ctx, tk.ID)
	if got.State != task.StateCompleted {
		t.Errorf("State = %q, want %q", got.State, task.StateCompleted)
	}
	if got.Result != "done" {
		t.Errorf("Result = %q, want %q", got.Result, "done")
	}
	if got.EndedAt == nil {
		t.Error("expected EndedAt to be set")
	}
}

func TestStore_EndInvalidTransition(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	// ready → completed skips running and must be rejected.
	tk := newReadyTask()
	if err := s.Add(ctx, tk); err != nil {
		t.Fatalf("add error: %v", err)
	}

	tk.State = task.StateCompleted
	err := s.End(ctx, tk)
	if !errors.Is(err, delayq.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestStore_EndFromTerminalRejected(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	tk := newReadyTask()
	if err := s.Add(ctx, tk); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := s.Start(ctx, tk); err != nil {
		t.Fatalf("start error: %v", err)
	}

	tk.State = task.StateFailed
	tk.Result = "boom"
	if err := s.End(ctx, tk); err != nil {
		t.Fatalf("end error: %v", err)
	}

	tk.State = task.StateCompleted
	err := s.End(ctx, tk)
	if !errors.Is(err, delayq.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition leaving a terminal state", err)
	}
}

func TestStore_CancelReadyOnly(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	ready := newReadyTask()
	running := newReadyTask()
	absent := id.NewTaskID()

	if err := s.Add(ctx, ready); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if err := s.Add(ctx, running); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := s.Start(ctx, running); err != nil {
		t.Fatalf("start error: %v", err)
	}

	affected, err := s.Cancel(ctx, "operator request", ready.ID, running.ID, absent)
	if err != nil {
		t.Fatalf("cancel error: %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}

	got, _ := s.Find(ctx, ready.ID)
	if got.State != task.StateCancelled {
		t.Errorf("ready task State = %q, want %q", got.State, task.StateCancelled)
	}
	if got.Result != "operator request" {
		t.Errorf("Result = %q, want the cancellation reason", got.Result)
	}

	got, _ = s.Find(ctx, running.ID)
	if got.State != task.StateRunning {
		t.Errorf("running task State = %q, want untouched %q", got.State, task.StateRunning)
	}
}

func TestStore_ListReady(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	a := newReadyTask()
	b := newReadyTask()
	started := newReadyTask()

	for _, tk := range []*task.Task{a, b, started} {
		if err := s.Add(ctx, tk); err != nil {
			t.Fatalf("add error: %v", err)
		}
	}
	if _, err := s.Start(ctx, started); err != nil {
		t.Fatalf("start error: %v", err)
	}

	ready, err := s.ListReady(ctx)
	if err != nil {
		t.Fatalf("list ready error: %v", err)
	}
	if len(ready) != 2 {
		t.Fatalf("expected 2 ready tasks, got %d", len(ready))
	}
	for _, tk := range ready {
		if tk.ID == started.ID {
			t.Error("started task must not appear in ready listing")
		}
	}
}
