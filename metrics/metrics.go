// Package metrics owns the Prometheus collectors of the API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	ratingsSubmitted *prometheus.CounterVec
	usersRegistered  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method", "path"},
		),
		ratingsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratings_submitted_total",
				Help: "Ratings submitted, by whether they created or overwrote a rating",
			},
			[]string{"result"},
		),
		usersRegistered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "users_registered_total",
				Help: "Users created, by role",
			},
			[]string{"role"},
		),
	}
	m.Registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.ratingsSubmitted,
		m.usersRegistered,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one finished request. path is the route template, not the raw URL.
func (m *Metrics) ObserveRequest(method, path, status string, seconds float64) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(seconds)
}

func (m *Metrics) RatingSubmitted(created bool) {
	result := "updated"
	if created {
		result = "created"
	}
	m.ratingsSubmitted.WithLabelValues(result).Inc()
}

func (m *Metrics) UserRegistered(role string) {
	m.usersRegistered.WithLabelValues(role).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
