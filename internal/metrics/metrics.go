// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequests counts requests by method, route pattern, and status.
	HTTPRequests *prometheus.CounterVec

	// Engagements counts engagement operations by kind and outcome.
	Engagements *prometheus.CounterVec
}

// New creates and registers the service collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devblog_http_requests_total",
			Help: "HTTP requests served, by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		Engagements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devblog_engagement_operations_total",
			Help: "Engagement operations processed, by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	registry.MustRegister(m.HTTPRequests, m.Engagements)
	return m
}

// Handler returns the /metrics scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEngagement records one engagement operation result.
func (m *Metrics) ObserveEngagement(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Engagements.WithLabelValues(operation, outcome).Inc()
}
