package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/trendrank/trendrank/updater/internal/job"
)

// DefaultPollInterval is how often the recurring loop checks for a due run.
const DefaultPollInterval = 30 * time.Second

// Runner executes one cycle.
type Runner interface {
	Run(ctx context.Context) job.Report
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) job.Report

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context) job.Report { return f(ctx) }

// Scheduler runs a Runner daily at a fixed Clock.
type Scheduler struct {
	at     Clock
	poll   time.Duration
	runner Runner

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Scheduler. A non-positive poll uses DefaultPollInterval.
func New(at Clock, poll time.Duration, r Runner) *Scheduler {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Scheduler{
		at:     at,
		poll:   poll,
		runner: r,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Once runs a single cycle synchronously.
func (s *Scheduler) Once(ctx context.Context) job.Report {
	return s.runner.Run(ctx)
}

// Run blocks, running the cycle each day at the configured time, until ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	next := s.at.Next(s.now())
	slog.Info("schedule: waiting for daily trigger", "at", s.at.String(), "next_run", next, "poll", s.poll)

	for {
		if now := s.now(); !now.Before(next) {
			rep := s.runner.Run(ctx)
			next = s.at.Next(s.now())
			slog.Info("schedule: cycle finished",
				"run_id", rep.RunID,
				"ok", rep.OK(),
				"next_run", next,
			)
		}
		if err := s.sleep(ctx, s.poll); err != nil {
			slog.Info("schedule: stopping", "reason", err)
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
