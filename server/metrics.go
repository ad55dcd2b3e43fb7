package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the Prometheus metrics for one server. Each server owns
// its registry so two instances never fight over registration.
type metrics struct {
	requests    *prometheus.CounterVec
	renders     prometheus.Counter
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	registry *prometheus.Registry
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()

	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigil_http_requests_total",
				Help: "Total number of HTTP requests by status code",
			},
			[]string{"status"},
		),

		renders: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sigil_renders_total",
				Help: "Total number of identicons rendered",
			},
		),

		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sigil_cache_hits_total",
				Help: "Total number of responses served from the render cache",
			},
		),

		cacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sigil_cache_misses_total",
				Help: "Total number of render cache lookups that missed",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.requests,
		m.renders,
		m.cacheHits,
		m.cacheMisses,
	)

	return m
}

// handler returns the HTTP handler exposing the registry.
func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
