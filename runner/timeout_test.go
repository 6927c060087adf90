package runner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/delayq/runner"
)

func TestRunWithTimeout_NoTimeoutRunsSync(t *testing.T) {
	value, timedOut, err := runner.RunWithTimeout(context.Background(), func(_ context.Context) (string, error) {
		return "done", nil
	}, 0)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if timedOut {
		t.Error("expected no timeout")
	}
	if value != "done" {
		t.Errorf("value = %q, want %q", value, "done")
	}
}

func TestRunWithTimeout_CompletesWithinDeadline(t *testing.T) {
	value, timedOut, err := runner.RunWithTimeout(context.Background(), func(_ context.Context) (string, error) {
		return "quick", nil
	}, time.Second)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if timedOut {
		t.Error("expected no timeout")
	}
	if value != "quick" {
		t.Errorf("value = %q, want %q", value, "quick")
	}
}

func TestRunWithTimeout_DeadlineElapses(t *testing.T) {
	cancelled := make(chan struct{})

	value, timedOut, err := runner.RunWithTimeout(context.Background(), func(ctx context.Context) (string, error) {
		<-ctx.Done()
		close(cancelled)
		return "late", ctx.Err()
	}, 20*time.Millisecond)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !timedOut {
		t.Fatal("expected timeout")
	}
	if value != "" {
		t.Errorf("value = %q, want empty on timeout", value)
	}

	// The work context must be cancelled so the stranded goroutine can
	// observe the deadline and stop.
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Error("work context was not cancelled after the deadline")
	}
}

func TestRunWithTimeout_ErrorPropagates(t *testing.T) {
	boom := errors.New("boom")

	_, timedOut, err := runner.RunWithTimeout(context.Background(), func(_ context.Context) (string, error) {
		return "", boom
	}, time.Second)

	if timedOut {
		t.Error("expected no timeout")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestRunWithTimeout_SyncErrorPropagates(t *testing.T) {
	boom := errors.New("boom")

	_, timedOut, err := runner.RunWithTimeout(context.Background(), func(_ context.Context) (string, error) {
		return "", boom
	}, 0)

	if timedOut {
		t.Error("expected no timeout")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
