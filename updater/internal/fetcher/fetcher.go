package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/trendrank/trendrank/pkg/types"
	"github.com/trendrank/trendrank/updater/internal/compute"
	"github.com/trendrank/trendrank/updater/internal/provider"
)

const (
	DefaultBatchSize   = 5
	DefaultMaxAttempts = 3

	backoffBase      = 5 * time.Second
	backoffJitterMax = 2 * time.Second
	pauseBase        = 1 * time.Second
	pauseJitterMax   = 1 * time.Second
)

// Request outcomes reported to the Observer.
const (
	OutcomeSuccess     = "success"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// Config controls batching and retries.
type Config struct {
	// BatchSize is the maximum number of keywords per provider request.
	BatchSize int
	// MaxAttempts bounds provider calls per batch, including the first.
	MaxAttempts int
	// Window is passed through to every provider call.
	Window types.Window
}

// Observer receives per-request outcomes. Implemented by the metrics package.
type Observer interface {
	ObserveRequest(outcome string)
	ObserveRetry()
}

// BatchError is returned when a batch could not be fetched.
type BatchError struct {
	Batch    []string
	Attempts int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("fetch batch %v after %d attempt(s): %v", e.Batch, e.Attempts, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Fetcher queries a Provider batch by batch and scores every keyword.
type Fetcher struct {
	provider provider.Provider
	cfg      Config
	obs      Observer

	sleep  sleepFunc      // injectable for tests
	jitter func() float64 // returns a value in [0, 1)
}

// sleepFunc blocks for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

// New creates a Fetcher. Zero BatchSize or MaxAttempts fall back to the
// defaults (5 and 3).
func New(p provider.Provider, cfg Config) *Fetcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Fetcher{
		provider: p,
		cfg:      cfg,
		obs:      nopObserver{},
		sleep:    sleepCtx,
		jitter:   rand.Float64, //nolint:gosec // not crypto
	}
}

// WithObserver sets the Observer that receives request outcomes.
func (f *Fetcher) WithObserver(o Observer) *Fetcher {
	if o != nil {
		f.obs = o
	}
	return f
}

// Fetch returns one ScoredRecord per keyword, in keyword order, or an error if
// any batch failed. Keywords the provider returned no data for score 0.
func (f *Fetcher) Fetch(ctx context.Context, keywords []string) ([]types.ScoredRecord, error) {
	batches := chunk(keywords, f.cfg.BatchSize)
	slog.Info("fetcher: starting fetch",
		"keywords", len(keywords),
		"batches", len(batches),
		"timeframe", f.cfg.Window.Timeframe,
		"region", f.cfg.Window.Region,
	)

	out := make([]types.ScoredRecord, 0, len(keywords))
	for i, batch := range batches {
		if i > 0 {
			if err := f.sleep(ctx, f.pause()); err != nil {
				return nil, err
			}
		}

		table, err := f.fetchBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		for _, kw := range batch {
			out = append(out, compute.Score(kw, table[kw]))
		}
	}
	return out, nil
}

// fetchBatch calls the provider for one batch, retrying rate-limit errors.
func (f *Fetcher) fetchBatch(ctx context.Context, batch []string) (provider.Table, error) {
	for attempt := 1; ; attempt++ {
		table, err := f.provider.Interest(ctx, batch, f.cfg.Window)
		if err == nil {
			f.obs.ObserveRequest(OutcomeSuccess)
			return table, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}

		transient := provider.IsRateLimited(err)
		if !transient {
			f.obs.ObserveRequest(OutcomeError)
			return nil, &BatchError{Batch: batch, Attempts: attempt, Err: err}
		}
		f.obs.ObserveRequest(OutcomeRateLimited)

		if attempt >= f.cfg.MaxAttempts {
			return nil, &BatchError{Batch: batch, Attempts: attempt, Err: err}
		}

		wait := f.backoff(attempt)
		slog.Warn("fetcher: rate-limited, will retry",
			"batch", batch,
			"attempt", attempt,
			"max_attempts", f.cfg.MaxAttempts,
			"retry_in", wait,
			"err", err,
		)
		f.obs.ObserveRetry()
		if err := f.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// backoff returns 2^attempt × 5s plus up to 2s of jitter. attempt is 1-based,
// so the first retry waits 10–12s and the second 20–22s.
func (f *Fetcher) backoff(attempt int) time.Duration {
	d := time.Duration(1<<attempt) * backoffBase
	return d + time.Duration(f.jitter()*float64(backoffJitterMax))
}

// pause returns the inter-batch delay: 1s plus up to 1s of jitter.
func (f *Fetcher) pause() time.Duration {
	return pauseBase + time.Duration(f.jitter()*float64(pauseJitterMax))
}

// chunk splits items into consecutive slices of at most size elements.
func chunk(items []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

// sleepCtx waits for d, returning ctx.Err() if ctx is done first.
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

type nopObserver struct{}

func (nopObserver) ObserveRequest(string) {}
func (nopObserver) ObserveRetry()         {}
