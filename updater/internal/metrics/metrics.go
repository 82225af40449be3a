package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/trendrank/trendrank/pkg/types"
	"github.com/trendrank/trendrank/updater/internal/publish"
)

const namespace = "trendrank"

// Cycle outcomes.
const (
	CycleSuccess = "success"
	CycleFailure = "failure"
)

// Metrics holds every collector the updater reports.
type Metrics struct {
	reg *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	requests      *prometheus.CounterVec
	retries       prometheus.Counter
	lastSuccess   prometheus.Gauge
	published     *prometheus.GaugeVec
	certDaysLeft  prometheus.Gauge
}

// New registers the updater metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Update cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of an update cycle, including backoff sleeps.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider batch requests by outcome.",
		}, []string{"outcome"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Backoff sleeps taken after rate-limited provider requests.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last published artifact.",
		}),
		published: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "published_trend_score",
			Help:      "Trend score of each keyword in the published artifact.",
		}, []string{"keyword"}),
		certDaysLeft: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_cert_days_left",
			Help:      "Days until the provider endpoint's TLS certificate expires.",
		}),
	}
	m.reg.MustRegister(m.cycles, m.cycleDuration, m.requests, m.retries, m.lastSuccess, m.published, m.certDaysLeft)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveRequest counts one provider request with its outcome.
func (m *Metrics) ObserveRequest(outcome string) { m.requests.WithLabelValues(outcome).Inc() }

// ObserveRetry counts one backoff.
func (m *Metrics) ObserveRetry() { m.retries.Inc() }

// ObserveCycle records the outcome and duration of a finished cycle. On
// success the published gauges are replaced with ranked.
func (m *Metrics) ObserveCycle(ok bool, d time.Duration, finished time.Time, ranked []types.RankedRecord) {
	m.cycleDuration.Observe(d.Seconds())
	if !ok {
		m.cycles.WithLabelValues(CycleFailure).Inc()
		return
	}
	m.cycles.WithLabelValues(CycleSuccess).Inc()
	m.lastSuccess.Set(float64(finished.Unix()))
	m.published.Reset()
	for _, r := range ranked {
		m.published.WithLabelValues(r.Name).Set(float64(r.TrendScore))
	}
}

// ObserveCertDaysLeft records the provider certificate's remaining validity.
func (m *Metrics) ObserveCertDaysLeft(days int) { m.certDaysLeft.Set(float64(days)) }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// WriteTextfile atomically writes the current metric values to path in the
// text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	mfs, err := m.reg.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}
	var buf bytes.Buffer
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return publish.WriteAtomic(path, buf.Bytes())
}
