// Package scheduler triggers the materialization job once per calendar day
// at local midnight. A missed trigger (process down at midnight) is simply
// skipped; the job itself catches up because it processes everything due
// whenever it next runs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"finbook/internal/core"
	"finbook/internal/services"
)

// Job is what the scheduler invokes each day.
type Job interface {
	Run(ctx context.Context, today core.Date) (services.RunResult, error)
}

type Scheduler struct {
	job Job
	loc *time.Location
	now func() time.Time
}

func New(job Job, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{job: job, loc: loc, now: time.Now}
}

// NextMidnight returns the first midnight in loc strictly after t.
// time.Date normalizes the day+1 overflow, so month and year boundaries and
// DST transitions fall out of the standard library.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
}

// Run blocks, firing the job at each local midnight until ctx is cancelled.
// Job errors are logged, never propagated: reliability comes from the next
// day's tick, not from retries here.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.now()
		next := NextMidnight(now, s.loc)
		timer := time.NewTimer(next.Sub(now))

		slog.InfoContext(ctx, "Materialization scheduled",
			"next_run", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			timer.Stop()
			slog.InfoContext(ctx, "Scheduler stopped", "reason", ctx.Err())
			return ctx.Err()
		case fired := <-timer.C:
			today := core.DateOf(fired.In(s.loc))
			res, err := s.job.Run(ctx, today)
			if err != nil {
				slog.ErrorContext(ctx, "Scheduled materialization failed",
					"as_of", today.String(),
					"error", err)
				continue
			}
			slog.InfoContext(ctx, "Scheduled materialization complete",
				"as_of", today.String(),
				"due", res.Due,
				"materialized", res.Materialized,
				"failed", res.Failed)
		}
	}
}
