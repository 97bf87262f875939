// Package metrics holds the prometheus collectors. A nil *Metrics is valid
// and records nothing, so components can run without a registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "safetywatch"

type Metrics struct {
	registry *prometheus.Registry

	alertsCreated    *prometheus.CounterVec
	alertsResolved   prometheus.Counter
	notifications    *prometheus.CounterVec
	feedClients      *prometheus.GaugeVec
	snapshotDuration prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	ingested         *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		alertsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "Alerts created, by category and severity.",
		}, []string{"category", "severity"}),
		alertsResolved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_resolved_total",
			Help:      "Alerts transitioned to resolved.",
		}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts, by notifier and result.",
		}, []string{"notifier", "result"}),
		feedClients: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_clients",
			Help:      "Connected realtime feed clients, by channel.",
		}, []string{"channel"}),
		snapshotDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent building a dashboard snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ingested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_events_total",
			Help:      "Detection events consumed, by kind and result.",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AlertCreated(category, severity string) {
	if m == nil {
		return
	}
	m.alertsCreated.WithLabelValues(category, severity).Inc()
}

func (m *Metrics) AlertResolved() {
	if m == nil {
		return
	}
	m.alertsResolved.Inc()
}

// Notification records one attempt. result is sent, failed, skipped or dropped.
func (m *Metrics) Notification(notifier, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(notifier, result).Inc()
}

// FeedClientConnected increments the client gauge and returns the matching
// decrement.
func (m *Metrics) FeedClientConnected(channel string) func() {
	if m == nil {
		return func() {}
	}
	g := m.feedClients.WithLabelValues(channel)
	g.Inc()
	return g.Dec
}

func (m *Metrics) ObserveSnapshot(d time.Duration) {
	if m == nil {
		return
	}
	m.snapshotDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Ingested(kind, result string) {
	if m == nil {
		return
	}
	m.ingested.WithLabelValues(kind, result).Inc()
}
