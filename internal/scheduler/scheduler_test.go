package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"finbook/internal/core"
	"finbook/internal/services"
)

func TestNextMidnight(t *testing.T) {
	utc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"midday",
			time.Date(2025, 6, 15, 12, 30, 0, 0, utc),
			time.Date(2025, 6, 16, 0, 0, 0, 0, utc),
		},
		{
			"just after midnight",
			time.Date(2025, 6, 15, 0, 0, 1, 0, utc),
			time.Date(2025, 6, 16, 0, 0, 0, 0, utc),
		},
		{
			"exactly midnight rolls to next day",
			time.Date(2025, 6, 15, 0, 0, 0, 0, utc),
			time.Date(2025, 6, 16, 0, 0, 0, 0, utc),
		},
		{
			"month boundary",
			time.Date(2025, 1, 31, 23, 59, 59, 0, utc),
			time.Date(2025, 2, 1, 0, 0, 0, 0, utc),
		},
		{
			"year boundary",
			time.Date(2025, 12, 31, 18, 0, 0, 0, utc),
			time.Date(2026, 1, 1, 0, 0, 0, 0, utc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextMidnight(tt.now, utc); !got.Equal(tt.want) {
				t.Fatalf("NextMidnight(%s) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}
}

type stubJob struct {
	ran chan core.Date
}

func (j *stubJob) Run(_ context.Context, today core.Date) (services.RunResult, error) {
	select {
	case j.ran <- today:
	default:
	}
	return services.RunResult{}, nil
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(&stubJob{ran: make(chan core.Date, 1)}, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRunFiresAtMidnight(t *testing.T) {
	job := &stubJob{ran: make(chan core.Date, 1)}
	s := New(job, time.UTC)

	// Pin the clock just before midnight so the timer fires immediately.
	s.now = func() time.Time {
		return time.Date(2025, 6, 15, 23, 59, 59, 999_000_000, time.UTC)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	select {
	case today := <-job.ran:
		if today != core.NewDate(2025, 6, 16) {
			t.Fatalf("job ran with today = %s, want 2025-06-16", today)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire")
	}
}

func TestNewDefaultsToLocalZone(t *testing.T) {
	s := New(&stubJob{ran: make(chan core.Date, 1)}, nil)
	if s.loc != time.Local {
		t.Fatal("nil location should default to time.Local")
	}
}
