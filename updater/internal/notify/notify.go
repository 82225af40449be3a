package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/trendrank/trendrank/pkg/types"
	"github.com/trendrank/trendrank/updater/internal/config"
)

// Event summarises one finished update cycle.
type Event struct {
	RunID      string               `json:"runId"`
	StartedAt  time.Time            `json:"startedAt"`
	DurationMs int64                `json:"durationMs"`
	OK         bool                 `json:"ok"`
	Error      string               `json:"error,omitempty"`
	Artifact   string               `json:"artifact"`
	Ranked     []types.RankedRecord `json:"ranked,omitempty"`

	// HadPrevious reports whether a published artifact existed when the cycle
	// started; after a failure it is still the one being served.
	HadPrevious bool `json:"hadPrevious"`
}

// Notifier delivers an Event somewhere.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type named struct {
	name string
	Notifier
}

// Multi fans an event out to several notifiers, logging individual failures.
type Multi struct {
	targets []named
}

// Add appends a notifier under name, used in log lines.
func (m *Multi) Add(name string, n Notifier) {
	m.targets = append(m.targets, named{name: name, Notifier: n})
}

// Len reports how many notifiers are registered.
func (m *Multi) Len() int { return len(m.targets) }

// Notify delivers ev to every target. It never returns an error.
func (m *Multi) Notify(ctx context.Context, ev Event) error {
	for _, t := range m.targets {
		if err := t.Notify(ctx, ev); err != nil {
			slog.Error("notify: delivery failed", "target", t.name, "run_id", ev.RunID, "err", err)
			continue
		}
		slog.Debug("notify: delivered", "target", t.name, "run_id", ev.RunID, "ok", ev.OK)
	}
	return nil
}

// FromConfig builds a Multi from the notify section. Targets whose URL
// environment variable is unset are skipped with a warning.
func FromConfig(cfg config.NotifyConfig) *Multi {
	m := &Multi{}
	for _, wh := range cfg.Webhooks {
		url := wh.URL()
		if url == "" {
			slog.Warn("notify: webhook url not set, skipping", "type", wh.Type, "url_env", wh.URLEnv)
			continue
		}
		m.Add("webhook:"+wh.Type, NewWebhook(wh.Type, url, wh.OnlyFailures))
	}
	if url := cfg.AMQP.URL(); url != "" {
		m.Add("amqp:"+cfg.AMQP.Queue, NewAMQP(url, cfg.AMQP.Queue))
	} else if cfg.AMQP.URLEnv != "" {
		slog.Warn("notify: amqp url not set, skipping", "url_env", cfg.AMQP.URLEnv)
	}
	return m
}
