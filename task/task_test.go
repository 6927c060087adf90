package task_test

import (
	"testing"
	"time"

	"github.com/xraph/delayq/task"
)

func TestState_Terminal(t *testing.T) {
	terminal := []task.State{
		task.StateCompleted, task.StateTimedOut, task.StateFailed, task.StateCancelled,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}

	live := []task.State{task.StateReady, task.StateRunning}
	for _, s := range live {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}

func TestState_CanTransition(t *testing.T) {
	allowed := map[task.State][]task.State{
		task.StateReady:   {task.StateRunning, task.StateCancelled},
		task.StateRunning: {task.StateCompleted, task.StateTimedOut, task.StateFailed},
	}

	all := []task.State{
		task.StateReady, task.StateRunning, task.StateCompleted,
		task.StateTimedOut, task.StateFailed, task.StateCancelled,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if to == ok {
					want = true
				}
			}
			if got := from.CanTransition(to); got != want {
				t.Errorf("CanTransition(%s → %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	runAt := time.Now().Add(time.Hour)
	tk := task.New("email.send", runAt)

	if tk.ID.IsNil() {
		t.Error("expected a generated ID")
	}
	if tk.Service != "email.send" {
		t.Errorf("Service = %q, want %q", tk.Service, "email.send")
	}
	if tk.State != task.StateReady {
		t.Errorf("State = %q, want %q", tk.State, task.StateReady)
	}
	if !tk.RunAt.Equal(runAt.UTC()) {
		t.Errorf("RunAt = %v, want %v", tk.RunAt, runAt.UTC())
	}
	if tk.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", tk.Timeout)
	}
	if tk.CreatedAt.IsZero() || tk.UpdatedAt.IsZero() {
		t.Error("expected CreatedAt and UpdatedAt to be stamped")
	}
}

func TestNew_Options(t *testing.T) {
	tk := task.New("report.generate", time.Now(),
		task.WithName("monthly report"),
		task.WithParams([]byte(`{"month":"2026-08"}`)),
		task.WithTimeout(30*time.Second),
	)

	if tk.Name != "monthly report" {
		t.Errorf("Name = %q, want %q", tk.Name, "monthly report")
	}
	if string(tk.Params) != `{"month":"2026-08"}` {
		t.Errorf("Params = %q", tk.Params)
	}
	if tk.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", tk.Timeout)
	}
}
