package job

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/trendrank/trendrank/pkg/types"
	"github.com/trendrank/trendrank/updater/internal/fetcher"
	"github.com/trendrank/trendrank/updater/internal/notify"
	"github.com/trendrank/trendrank/updater/internal/provider"
	"github.com/trendrank/trendrank/updater/internal/publish"
)

type fakeFetcher struct {
	records []types.ScoredRecord
	err     error
	panicV  any
	calls   int
}

func (f *fakeFetcher) Fetch(context.Context, []string) ([]types.ScoredRecord, error) {
	f.calls++
	if f.panicV != nil {
		panic(f.panicV)
	}
	return f.records, f.err
}

// countingStore wraps a Publisher and counts writes.
type countingStore struct {
	*publish.Publisher
	writes int
}

func (s *countingStore) Write(ctx context.Context, records []types.RankedRecord) error {
	s.writes++
	return s.Publisher.Write(ctx, records)
}

type fakeRecorder struct {
	calls  int
	lastOK bool
	ranked []types.RankedRecord
}

func (r *fakeRecorder) ObserveCycle(ok bool, _ time.Duration, _ time.Time, ranked []types.RankedRecord) {
	r.calls++
	r.lastOK = ok
	r.ranked = ranked
}

type fakeNotifier struct{ events []notify.Event }

func (n *fakeNotifier) Notify(_ context.Context, ev notify.Event) error {
	n.events = append(n.events, ev)
	return nil
}

func newStore(t *testing.T) (*countingStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "public", "trends.json")
	return &countingStore{Publisher: publish.New(publish.NewFileStore(path), nil)}, path
}

func fixedID(j *Job) *Job {
	j.newID = func() string { return "run-test" }
	return j
}

func TestRun_FetchFailureNeverWrites(t *testing.T) {
	store, path := newStore(t)
	seed := []types.RankedRecord{{Name: "Old", TrendScore: 77, Momentum: types.MomentumRising}}
	if err := store.Publisher.Write(context.Background(), seed); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)

	rec := &fakeRecorder{}
	nt := &fakeNotifier{}
	f := &fakeFetcher{err: errors.New("batch 0: rate limited")}
	rep := fixedID(New([]string{"A"}, 5, Deps{Fetcher: f, Store: store, Recorder: rec, Notifier: nt})).Run(context.Background())

	if rep.OK() {
		t.Fatal("report OK on fetch failure")
	}
	if !rep.HadPrevious {
		t.Error("HadPrevious: got false, want true")
	}
	if rep.Ranked != nil {
		t.Errorf("Ranked on failure: got %+v, want nil", rep.Ranked)
	}
	if store.writes != 0 {
		t.Errorf("Write called %d times after failed fetch", store.writes)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("artifact bytes changed after failed cycle")
	}
	if rec.calls != 1 || rec.lastOK {
		t.Errorf("recorder: calls=%d ok=%v, want 1 false", rec.calls, rec.lastOK)
	}
	if len(nt.events) != 1 || nt.events[0].OK || !strings.Contains(nt.events[0].Error, "rate limited") {
		t.Errorf("notifier events: %+v", nt.events)
	}
	if len(nt.events) == 1 && !nt.events[0].HadPrevious {
		t.Error("event HadPrevious: got false, want true")
	}
}

func TestRun_FailureWithoutPrevious(t *testing.T) {
	store, path := newStore(t)
	nt := &fakeNotifier{}
	rep := New([]string{"A"}, 5, Deps{Fetcher: &fakeFetcher{err: errors.New("boom")}, Store: store, Notifier: nt}).Run(context.Background())

	if rep.OK() || rep.HadPrevious {
		t.Errorf("report: ok=%v hadPrevious=%v, want false false", rep.OK(), rep.HadPrevious)
	}
	if len(nt.events) != 1 || nt.events[0].HadPrevious {
		t.Errorf("notifier events: %+v, want one without fallback", nt.events)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("artifact created by failed cycle: %v", err)
	}
}

func TestRun_Success(t *testing.T) {
	store, _ := newStore(t)
	rec := &fakeRecorder{}
	nt := &fakeNotifier{}
	f := &fakeFetcher{records: []types.ScoredRecord{
		{Name: "A", TrendScore: 90}, {Name: "B", TrendScore: 85}, {Name: "C", TrendScore: 60},
		{Name: "D", TrendScore: 10}, {Name: "E", TrendScore: 0}, {Name: "F", TrendScore: 70},
		{Name: "G", TrendScore: 71}, {Name: "H", TrendScore: 40},
	}}
	rep := fixedID(New([]string{"A", "B", "C", "D", "E", "F", "G", "H"}, 5,
		Deps{Fetcher: f, Store: store, Recorder: rec, Notifier: nt})).Run(context.Background())

	if !rep.OK() {
		t.Fatalf("Run: %v", rep.Err)
	}
	if rep.RunID != "run-test" {
		t.Errorf("RunID: got %q", rep.RunID)
	}
	assertTop5(t, rep.Ranked)
	assertTop5(t, store.ReadLast())

	if store.writes != 1 {
		t.Errorf("writes: got %d, want 1", store.writes)
	}
	if rec.calls != 1 || !rec.lastOK || len(rec.ranked) != 5 {
		t.Errorf("recorder: %+v", rec)
	}
	if len(nt.events) != 1 || !nt.events[0].OK || nt.events[0].RunID != "run-test" {
		t.Errorf("notifier events: %+v", nt.events)
	}
}

func assertTop5(t *testing.T, got []types.RankedRecord) {
	t.Helper()
	want := []types.RankedRecord{
		{Name: "A", TrendScore: 90, Momentum: types.MomentumRising},
		{Name: "B", TrendScore: 85, Momentum: types.MomentumRising},
		{Name: "G", TrendScore: 71, Momentum: types.MomentumRising},
		{Name: "F", TrendScore: 70, Momentum: types.MomentumPopular},
		{Name: "C", TrendScore: 60, Momentum: types.MomentumPopular},
	}
	if len(got) != len(want) {
		t.Fatalf("ranked len: got %d, want %d (%+v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d: got %+v, want %+v", i+1, got[i], want[i])
		}
	}
}

func TestRun_EndToEndWithFetcher(t *testing.T) {
	scores := map[string]float64{"A": 90, "B": 85, "C": 60, "D": 10, "E": 0, "F": 70, "G": 71, "H": 40}
	calls := 0
	p := provider.Func(func(_ context.Context, kws []string, _ types.Window) (provider.Table, error) {
		calls++
		tbl := provider.Table{}
		for _, kw := range kws {
			tbl[kw] = []float64{scores[kw], scores[kw]}
		}
		return tbl, nil
	})
	// A single batch keeps the test free of inter-batch pauses.
	f := fetcher.New(p, fetcher.Config{BatchSize: 8, MaxAttempts: 3})

	store, _ := newStore(t)
	rep := New([]string{"A", "B", "C", "D", "E", "F", "G", "H"}, 5, Deps{Fetcher: f, Store: store}).Run(context.Background())
	if !rep.OK() {
		t.Fatalf("Run: %v", rep.Err)
	}
	if calls != 1 {
		t.Errorf("provider calls: got %d, want 1", calls)
	}
	assertTop5(t, store.ReadLast())
}

func TestRun_WriteFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	// A regular file where the artifact directory should be makes MkdirAll fail.
	blocker := filepath.Join(dir, "public")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := publish.New(publish.NewFileStore(filepath.Join(blocker, "trends.json")), nil)

	f := &fakeFetcher{records: []types.ScoredRecord{{Name: "A", TrendScore: 50}}}
	rep := New([]string{"A"}, 5, Deps{Fetcher: f, Store: store}).Run(context.Background())
	if rep.OK() {
		t.Fatal("expected failure when the artifact cannot be written")
	}
	if !strings.Contains(rep.Err.Error(), "job: write") {
		t.Errorf("error: got %v, want a write error", rep.Err)
	}
	if rep.Ranked != nil {
		t.Errorf("Ranked on write failure: %+v", rep.Ranked)
	}
}

func TestRun_RecoversPanic(t *testing.T) {
	store, _ := newStore(t)
	rec := &fakeRecorder{}
	rep := New([]string{"A"}, 5, Deps{Fetcher: &fakeFetcher{panicV: "nil map"}, Store: store, Recorder: rec}).Run(context.Background())

	if rep.OK() {
		t.Fatal("report OK after panic")
	}
	if !strings.Contains(rep.Err.Error(), "panic") {
		t.Errorf("error: got %v", rep.Err)
	}
	if rec.calls != 1 {
		t.Errorf("recorder calls after panic: got %d, want 1", rec.calls)
	}
	if store.writes != 0 {
		t.Errorf("writes after panic: %d", store.writes)
	}
}

type panicRecorder struct{}

func (panicRecorder) ObserveCycle(bool, time.Duration, time.Time, []types.RankedRecord) {
	panic("recorder broke")
}

type panicNotifier struct{}

func (panicNotifier) Notify(context.Context, notify.Event) error { panic("notifier broke") }

func TestRun_ReportingPanicDoesNotEscape(t *testing.T) {
	cases := []struct {
		name string
		deps func(Deps) Deps
	}{
		{"recorder", func(d Deps) Deps { d.Recorder = panicRecorder{}; return d }},
		{"notifier", func(d Deps) Deps { d.Notifier = panicNotifier{}; return d }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			store, _ := newStore(t)
			f := &fakeFetcher{records: []types.ScoredRecord{{Name: "A", TrendScore: 50}}}
			j := New([]string{"A"}, 5, c.deps(Deps{Fetcher: f, Store: store}))

			var rep Report
			func() {
				defer func() {
					if r := recover(); r != nil {
						t.Fatalf("Run panicked: %v", r)
					}
				}()
				rep = j.Run(context.Background())
			}()
			if !rep.OK() {
				t.Errorf("report: %v, want success", rep.Err)
			}
			if got := store.ReadLast(); len(got) != 1 || got[0].Name != "A" {
				t.Errorf("artifact: %+v", got)
			}
		})
	}
}

func TestRun_Duration(t *testing.T) {
	store, _ := newStore(t)
	j := New([]string{"A"}, 5, Deps{Fetcher: &fakeFetcher{records: []types.ScoredRecord{{Name: "A", TrendScore: 1}}}, Store: store})
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(42 * time.Second)}
	j.now = func() time.Time {
		tick := ticks[0]
		if len(ticks) > 1 {
			ticks = ticks[1:]
		}
		return tick
	}
	rep := j.Run(context.Background())
	if rep.Duration != 42*time.Second {
		t.Errorf("Duration: got %v, want 42s", rep.Duration)
	}
	if !rep.StartedAt.Equal(base) {
		t.Errorf("StartedAt: got %v", rep.StartedAt)
	}
}

func TestEvent(t *testing.T) {
	for _, had := range []bool{true, false} {
		rep := Report{RunID: "r", Duration: 1500 * time.Millisecond, Err: errors.New("x"), HadPrevious: had}
		ev := Event(rep, "public/trends.json")
		if ev.OK || ev.Error != "x" || ev.DurationMs != 1500 || ev.Artifact != "public/trends.json" {
			t.Errorf("Event: %+v", ev)
		}
		if ev.HadPrevious != had {
			t.Errorf("HadPrevious: got %v, want %v", ev.HadPrevious, had)
		}
	}
}
