package job

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/trendrank/trendrank/pkg/types"
	"github.com/trendrank/trendrank/updater/internal/compute"
	"github.com/trendrank/trendrank/updater/internal/notify"
)

// Fetcher returns one scored record per keyword.
type Fetcher interface {
	Fetch(ctx context.Context, keywords []string) ([]types.ScoredRecord, error)
}

// Store is the artifact persistence used by a cycle.
type Store interface {
	Path() string
	ReadLast() []types.RankedRecord
	Write(ctx context.Context, records []types.RankedRecord) error
}

// Recorder receives cycle metrics.
type Recorder interface {
	ObserveCycle(ok bool, d time.Duration, finished time.Time, ranked []types.RankedRecord)
}

// Deps are the collaborators of a Job. Recorder and Notifier are optional.
type Deps struct {
	Fetcher  Fetcher
	Store    Store
	Recorder Recorder
	Notifier notify.Notifier
}

// Report is the outcome of one cycle.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	// Ranked is the published list; nil when the cycle failed.
	Ranked []types.RankedRecord

	// Err is the reason the cycle failed; nil on success.
	Err error

	// HadPrevious reports whether a well-formed artifact existed when the
	// cycle started. On failure it tells whether stale data is still served.
	HadPrevious bool
}

// OK reports whether the cycle published a new artifact.
func (r Report) OK() bool { return r.Err == nil }

// Job is a configured update cycle.
type Job struct {
	keywords []string
	topN     int
	deps     Deps

	now   func() time.Time
	newID func() string
}

// New returns a Job ranking keywords into the top topN.
func New(keywords []string, topN int, deps Deps) *Job {
	return &Job{
		keywords: keywords,
		topN:     topN,
		deps:     deps,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Run executes one cycle.
func (j *Job) Run(ctx context.Context) (rep Report) {
	rep.RunID = j.newID()
	rep.StartedAt = j.now()
	log := slog.With("run_id", rep.RunID)

	defer func() {
		if r := recover(); r != nil {
			rep.Ranked = nil
			rep.Err = fmt.Errorf("job: panic: %v", r)
			log.Error("job: cycle panicked", "panic", r, "stack", string(debug.Stack()))
		}
		rep.Duration = j.now().Sub(rep.StartedAt)
		j.finish(ctx, log, rep)
	}()

	previous := j.deps.Store.ReadLast()
	rep.HadPrevious = len(previous) > 0
	log.Info("job: cycle started",
		"keywords", len(j.keywords),
		"artifact", j.deps.Store.Path(),
		"previous_records", len(previous),
	)

	records, err := j.deps.Fetcher.Fetch(ctx, j.keywords)
	if err != nil {
		rep.Err = fmt.Errorf("job: fetch: %w", err)
		return rep
	}

	ranked := compute.Rank(records, j.topN)
	if err := j.deps.Store.Write(ctx, ranked); err != nil {
		rep.Err = fmt.Errorf("job: write: %w", err)
		return rep
	}
	rep.Ranked = ranked
	return rep
}

// finish logs rep and hands it to the recorder and notifier. A panic in
// either is logged and does not escape Run.
func (j *Job) finish(ctx context.Context, log *slog.Logger, rep Report) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("job: cycle reporting panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if rep.OK() {
		log.Info("job: artifact published",
			"artifact", j.deps.Store.Path(),
			"records", len(rep.Ranked),
			"duration", rep.Duration,
		)
		for i, r := range rep.Ranked {
			log.Info("job: ranked",
				"line", fmt.Sprintf("%d. %s (%s)", i+1, r.Name, r.Momentum),
				"score", r.TrendScore,
			)
		}
	} else if rep.HadPrevious {
		log.Error("job: cycle failed, keeping previous artifact", "err", rep.Err, "duration", rep.Duration)
	} else {
		log.Error("job: cycle failed, no previous artifact", "err", rep.Err, "duration", rep.Duration)
	}

	if j.deps.Recorder != nil {
		j.deps.Recorder.ObserveCycle(rep.OK(), rep.Duration, rep.StartedAt.Add(rep.Duration), rep.Ranked)
	}
	if j.deps.Notifier != nil {
		if err := j.deps.Notifier.Notify(ctx, Event(rep, j.deps.Store.Path())); err != nil {
			log.Warn("job: notify failed", "err", err)
		}
	}
}

// Event converts a report into its notification form.
func Event(rep Report, artifact string) notify.Event {
	ev := notify.Event{
		RunID:       rep.RunID,
		StartedAt:   rep.StartedAt,
		DurationMs:  rep.Duration.Milliseconds(),
		OK:          rep.OK(),
		Artifact:    artifact,
		Ranked:      rep.Ranked,
		HadPrevious: rep.HadPrevious,
	}
	if rep.Err != nil {
		ev.Error = rep.Err.Error()
	}
	return ev
}
