// Package metrics exposes Prometheus instrumentation on a private registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

// Metrics holds the application collectors.
type Metrics struct {
	registry      *prometheus.Registry
	inserts       *prometheus.CounterVec
	insertLatency prometheus.Histogram
	notifications *prometheus.CounterVec
	companies     prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "companybook_inserts_total",
			Help: "Insert attempts by outcome.",
		}, []string{"outcome"}),
		insertLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "companybook_insert_duration_seconds",
			Help:    "Latency of insert attempts.",
			Buckets: prometheus.DefBuckets,
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "companybook_notifications_total",
			Help: "Notification deliveries by outcome.",
		}, []string{"outcome"}),
		companies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "companybook_companies",
			Help: "Number of companies in the store.",
		}),
	}
	m.registry.MustRegister(
		m.inserts,
		m.insertLatency,
		m.notifications,
		m.companies,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveInsert records one insert attempt.
func (m *Metrics) ObserveInsert(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.inserts.WithLabelValues(outcome).Inc()
	m.insertLatency.Observe(took.Seconds())
}

// ObserveNotification records one notification attempt.
func (m *Metrics) ObserveNotification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}

// SetCompanies sets the current collection size.
func (m *Metrics) SetCompanies(n int) {
	if m == nil {
		return
	}
	m.companies.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
