package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports a queue's QueueStats as prometheus gauges, adapted from
// gothub's internal/api/metrics.go periodic-scrape pattern — roomhub has
// no single long-lived DB connection to poll, so a per-queue goroutine
// calls Stats on an interval instead.
type Metrics struct {
	succeeded prometheus.Gauge
	failed    prometheus.Gauge
	errored   prometheus.Gauge
	scheduled prometheus.Gauge
	claimed   prometheus.Gauge
}

// NewMetrics registers gauges for queueName against reg.
func NewMetrics(reg prometheus.Registerer, queueName string) *Metrics {
	labels := prometheus.Labels{"queue": queueName}
	m := &Metrics{
		succeeded: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "roomhub", Subsystem: "queue", Name: "succeeded_total", ConstLabels: labels}),
		failed:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "roomhub", Subsystem: "queue", Name: "failed_total", ConstLabels: labels}),
		errored:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "roomhub", Subsystem: "queue", Name: "errored_total", ConstLabels: labels}),
		scheduled: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "roomhub", Subsystem: "queue", Name: "scheduled", ConstLabels: labels}),
		claimed:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "roomhub", Subsystem: "queue", Name: "claimed", ConstLabels: labels}),
	}
	reg.MustRegister(m.succeeded, m.failed, m.errored, m.scheduled, m.claimed)
	return m
}

// Set pushes a fresh stats snapshot into the gauges.
func (m *Metrics) Set(stats QueueStats) {
	m.succeeded.Set(float64(stats.Succeeded))
	m.failed.Set(float64(stats.Failed))
	m.errored.Set(float64(stats.Errored))
	m.scheduled.Set(float64(stats.Scheduled))
	m.claimed.Set(float64(stats.Claimed))
}

// RunMetricsLoop polls q.Stats every interval and pushes the result into
// m until ctx is cancelled.
func RunMetricsLoop[P any, R any](ctx context.Context, q *Queue[P, R], m *Metrics, interval time.Duration, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := q.Stats(ctx)
			if err != nil {
				log.WarnContext(ctx, "queue stats scrape failed", "queue", q.name, "error", err)
				continue
			}
			m.Set(stats)
		}
	}
}
