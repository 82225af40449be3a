package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/trendrank/trendrank/pkg/types"
	"github.com/trendrank/trendrank/updater/internal/config"
	"github.com/trendrank/trendrank/updater/internal/fetcher"
	"github.com/trendrank/trendrank/updater/internal/job"
	"github.com/trendrank/trendrank/updater/internal/metrics"
	"github.com/trendrank/trendrank/updater/internal/notify"
	"github.com/trendrank/trendrank/updater/internal/provider"
	"github.com/trendrank/trendrank/updater/internal/publish"
	"github.com/trendrank/trendrank/updater/internal/schedule"
	"github.com/trendrank/trendrank/updater/internal/security"
)

func main() {
	once := flag.Bool("once", false, "run a single update cycle and exit")
	at := flag.String("time", "10:00", "daily trigger time, local HH:MM")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	clock, err := schedule.ParseClock(*at)
	if err != nil {
		slog.Error("invalid --time", "err", err)
		os.Exit(1)
	}

	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "err", err)
		os.Exit(1)
	}

	m := metrics.New()
	initial, err := build(cfg, m)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		os.Exit(1)
	}

	mode := "recurring"
	if *once {
		mode = "once"
	}
	slog.Info("trendrank-updater starting",
		"mode", mode,
		"config", configPath,
		"keywords", len(cfg.Keywords),
		"output", cfg.OutputPath,
		"provider", cfg.Provider.Endpoint,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	checkProviderCert(ctx, cfg.Provider.Endpoint, m)

	// Each cycle runs against the pipeline snapshot current when it starts.
	var current atomic.Pointer[pipeline]
	current.Store(initial)

	runner := schedule.RunnerFunc(func(ctx context.Context) job.Report {
		p := current.Load()
		rep := p.job.Run(ctx)
		if path := p.cfg.Metrics.TextfilePath; path != "" {
			if err := m.WriteTextfile(path); err != nil {
				slog.Warn("metrics textfile write failed", "path", path, "err", err)
			}
		}
		return rep
	})
	sched := schedule.New(clock, cfg.PollInterval, runner)

	if *once {
		rep := sched.Once(ctx)
		slog.Info("trendrank-updater finished", "run_id", rep.RunID, "ok", rep.OK(), "duration", rep.Duration)
		return
	}

	go func() {
		if err := config.Watch(ctx, configPath, func(updated *config.Config) {
			p, err := build(updated, m)
			if err != nil {
				slog.Error("config reload rejected, keeping previous config", "err", err)
				return
			}
			current.Store(p)
			slog.Info("config hot-reloaded", "keywords", len(updated.Keywords), "output", updated.OutputPath)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	if addr := cfg.Metrics.ListenAddr; addr != "" {
		go serveMetrics(ctx, addr, m)
	}

	sched.Run(ctx)
	slog.Info("trendrank-updater shutting down")
}

// pipeline is an immutable snapshot of one config and the job built from it.
type pipeline struct {
	cfg *config.Config
	job *job.Job
}

func build(cfg *config.Config, m *metrics.Metrics) (*pipeline, error) {
	p, err := provider.NewHTTP(cfg.Provider)
	if err != nil {
		return nil, err
	}
	f := fetcher.New(p, fetcher.Config{
		BatchSize:   cfg.BatchSize,
		MaxAttempts: cfg.MaxAttempts,
		Window:      types.Window{Timeframe: cfg.Timeframe, Region: cfg.Region},
	}).WithObserver(m)

	var mirror publish.Mirror
	if cfg.Mirror.Enabled() {
		s3, err := publish.NewS3Mirror(cfg.Mirror)
		if err != nil {
			return nil, err
		}
		mirror = s3
	}
	store := publish.New(publish.NewFileStore(cfg.OutputPath), mirror)

	deps := job.Deps{Fetcher: f, Store: store, Recorder: m}
	if n := notify.FromConfig(cfg.Notify); n.Len() > 0 {
		deps.Notifier = n
	}
	return &pipeline{cfg: cfg, job: job.New(cfg.Keywords, cfg.TopN, deps)}, nil
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server stopped", "err", err)
	}
}

func checkProviderCert(ctx context.Context, endpoint string, m *metrics.Metrics) {
	cs := security.Check(ctx, endpoint, nil)
	if cs == nil {
		return
	}
	attrs := []any{"endpoint", cs.Endpoint, "status", cs.Status}
	switch cs.Status {
	case security.StatusValid:
		m.ObserveCertDaysLeft(cs.DaysLeft)
		slog.Info("provider certificate ok", append(attrs, "days_left", cs.DaysLeft, "issuer", cs.Issuer)...)
	case security.StatusExpiring, security.StatusExpired:
		m.ObserveCertDaysLeft(cs.DaysLeft)
		slog.Warn("provider certificate needs renewal", append(attrs, "days_left", cs.DaysLeft, "not_after", cs.NotAfter)...)
	default:
		slog.Warn("provider certificate check failed", append(attrs, "err", cs.Err)...)
	}
}
