package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRegisterRejectsBadJobs(t *testing.T) {
	s := New(testLogger())

	err := s.Register(&Job{Name: "no-guard", Cron: "* * * * *", Run: func(ctx context.Context) error { return nil }})
	if err == nil {
		t.Error("expected error for job without a guard")
	}

	err = s.Register(&Job{Name: "bad-cron", Cron: "not a cron", Guard: NewGuard(), Run: func(ctx context.Context) error { return nil }})
	if err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestExecuteSkipsWhenGuardHeld(t *testing.T) {
	s := New(testLogger())
	guard := NewGuard()

	var runs atomic.Int32
	job := &Job{
		Name:  "guarded",
		Cron:  "* * * * *",
		Guard: guard,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}

	// A sibling job sharing the guard is mid-run.
	if !guard.tryAcquire() {
		t.Fatal("fresh guard should acquire")
	}
	s.execute(context.Background(), job, testLogger())
	if got := runs.Load(); got != 0 {
		t.Errorf("job ran %d times while guard held, want 0", got)
	}

	guard.release()
	s.execute(context.Background(), job, testLogger())
	if got := runs.Load(); got != 1 {
		t.Errorf("job ran %d times after release, want 1", got)
	}
}

func TestExecuteReleasesGuardOnPanic(t *testing.T) {
	s := New(testLogger())
	guard := NewGuard()

	job := &Job{
		Name:  "panicky",
		Cron:  "* * * * *",
		Guard: guard,
		Run: func(ctx context.Context) error {
			panic("boom")
		},
	}

	s.execute(context.Background(), job, testLogger())

	if !guard.tryAcquire() {
		t.Fatal("guard still held after panicking run")
	}
	guard.release()
}

func TestExecuteReleasesGuardOnError(t *testing.T) {
	s := New(testLogger())
	guard := NewGuard()

	job := &Job{
		Name:  "failing",
		Cron:  "* * * * *",
		Guard: guard,
		Run: func(ctx context.Context) error {
			return errors.New("upstream down")
		},
	}

	s.execute(context.Background(), job, testLogger())

	if !guard.tryAcquire() {
		t.Fatal("guard still held after failed run")
	}
	guard.release()
}

func TestExecuteHonorsMinSpacing(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s := New(testLogger())
	s.now = func() time.Time { return now }

	var runs atomic.Int32
	job := &Job{
		Name:       "spaced",
		Cron:       "* * * * *",
		Guard:      NewGuard(),
		MinSpacing: 15 * time.Minute,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}

	s.execute(context.Background(), job, testLogger())
	if got := runs.Load(); got != 1 {
		t.Fatalf("first run suppressed, runs = %d", got)
	}

	// Ten minutes later is inside the spacing window.
	now = now.Add(10 * time.Minute)
	s.execute(context.Background(), job, testLogger())
	if got := runs.Load(); got != 1 {
		t.Errorf("run inside spacing window not suppressed, runs = %d", got)
	}

	// Twenty minutes after the first start is outside it.
	now = now.Add(10 * time.Minute)
	s.execute(context.Background(), job, testLogger())
	if got := runs.Load(); got != 2 {
		t.Errorf("run outside spacing window suppressed, runs = %d", got)
	}
}

func TestSharedGuardSerializesSiblingJobs(t *testing.T) {
	s := New(testLogger())
	guard := NewGuard()

	started := make(chan struct{})
	unblock := make(chan struct{})
	longJob := &Job{
		Name:  "long",
		Cron:  "* * * * *",
		Guard: guard,
		Run: func(ctx context.Context) error {
			close(started)
			<-unblock
			return nil
		},
	}

	var siblingRuns atomic.Int32
	sibling := &Job{
		Name:  "sibling",
		Cron:  "* * * * *",
		Guard: guard,
		Run: func(ctx context.Context) error {
			siblingRuns.Add(1)
			return nil
		},
	}

	go s.execute(context.Background(), longJob, testLogger())
	<-started

	s.execute(context.Background(), sibling, testLogger())
	if got := siblingRuns.Load(); got != 0 {
		t.Errorf("sibling ran while shared guard held, runs = %d", got)
	}

	close(unblock)
}
