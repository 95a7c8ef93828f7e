package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRejectsBadExpression(t *testing.T) {
	for _, expr := range []string{"", "not a cron", "0 9 * *", "61 * * * *"} {
		if _, err := New(expr, func(context.Context) error { return nil }); err == nil {
			t.Errorf("%q: expected error", expr)
		}
	}
}

func TestNextWeekly(t *testing.T) {
	s, err := New("0 9 * * 1", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Friday 2026-02-06 -> Monday 2026-02-09 09:00
	from := time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)
	want := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	if got := s.Next(from); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRunInvokesJobUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	s, err := New("@every 1s", func(context.Context) error {
		if runs.Add(1) == 2 {
			cancel()
		}
		return errors.New("errors are logged, not fatal")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	if n := runs.Load(); n < 2 {
		t.Errorf("expected at least 2 runs, got %d", n)
	}
}

func TestTickSkipsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	s, _ := New("@daily", func(context.Context) error {
		called = true
		return nil
	})
	s.tick(ctx)
	if called {
		t.Error("job must not run after cancellation")
	}
}
