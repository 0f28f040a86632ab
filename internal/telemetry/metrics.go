// Package telemetry exposes lifecycle activity as Prometheus metrics.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/ashureev/frontdesk/internal/lifecycle"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "frontdesk"

// Source is what the collector reads at scrape time.
type Source interface {
	GetMetrics(ctx context.Context) (lifecycle.RequestMetrics, error)
	GetStatus(ctx context.Context, id string) (*lifecycle.StatusReport, error)
}

// Metrics holds the frontdesk collectors.
type Metrics struct {
	source Source
	logger *slog.Logger

	events            *prometheus.CounterVec
	resolutionLatency prometheus.Histogram

	requests       *prometheus.Desc
	timeoutRate    *prometheus.Desc
	resolutionRate *prometheus.Desc
	avgResolution  *prometheus.Desc
}

// New creates the collectors and registers them with reg.
func New(source Source, reg prometheus.Registerer, logger *slog.Logger) (*Metrics, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Metrics{
		source: source,
		logger: logger,
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_events_total",
				Help:      "Lifecycle events by kind.",
			},
			[]string{"kind"},
		),
		resolutionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_latency_seconds",
			Help:      "Time from escalation to a human answer.",
			Buckets:   []float64{30, 60, 120, 300, 600, 900, 1200, 1800},
		}),
		requests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "help_requests"),
			"Stored help requests by status.",
			[]string{"status"}, nil,
		),
		timeoutRate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "timeout_rate"),
			"Fraction of help requests that timed out.",
			nil, nil,
		),
		resolutionRate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "resolution_rate"),
			"Fraction of help requests that were resolved.",
			nil, nil,
		),
		avgResolution: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "average_resolution_minutes"),
			"Mean minutes from escalation to resolution over resolved requests.",
			nil, nil,
		),
	}

	for _, c := range []prometheus.Collector{m.events, m.resolutionLatency, m} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one lifecycle event. It is meant to be registered as a
// lifecycle listener.
func (m *Metrics) Observe(e domain.LifecycleEvent) {
	m.events.WithLabelValues(string(e.Kind)).Inc()
	if e.Kind != domain.EventResolved {
		return
	}

	report, err := m.source.GetStatus(context.Background(), e.RequestID)
	if err != nil {
		m.logger.Warn("Failed to load request for latency", "request_id", e.RequestID, "error", err)
		return
	}
	if d, ok := report.Request.ResolutionLatency(); ok {
		m.resolutionLatency.Observe(d.Seconds())
	}
}

// Describe implements prometheus.Collector for the scrape-time gauges.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.requests
	ch <- m.timeoutRate
	ch <- m.resolutionRate
	ch <- m.avgResolution
}

// Collect implements prometheus.Collector. It recomputes request metrics
// from the store on every scrape.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rm, err := m.source.GetMetrics(ctx)
	if err != nil {
		m.logger.Error("Failed to compute request metrics", "error", err)
		ch <- prometheus.NewInvalidMetric(m.requests, err)
		return
	}

	ch <- prometheus.MustNewConstMetric(m.requests, prometheus.GaugeValue, float64(rm.PendingRequests), string(domain.StatusPending))
	ch <- prometheus.MustNewConstMetric(m.requests, prometheus.GaugeValue, float64(rm.ResolvedRequests), string(domain.StatusResolved))
	ch <- prometheus.MustNewConstMetric(m.requests, prometheus.GaugeValue, float64(rm.TimeoutRequests), string(domain.StatusTimeout))
	ch <- prometheus.MustNewConstMetric(m.timeoutRate, prometheus.GaugeValue, rm.TimeoutRate)
	ch <- prometheus.MustNewConstMetric(m.resolutionRate, prometheus.GaugeValue, rm.ResolutionRate)
	ch <- prometheus.MustNewConstMetric(m.avgResolution, prometheus.GaugeValue, rm.AverageResolutionMinutes)
}
