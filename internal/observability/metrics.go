package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	admissionsTotal *prometheus.CounterVec
	redirectsTotal  *prometheus.CounterVec
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Total HTTP requests",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auth_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_errors_total",
			Help: "Error responses by code",
		}, []string{"route", "method", "code"}),
		admissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_signin_admissions_total",
			Help: "Sign-in admission decisions",
		}, []string{"method", "outcome"}),
		redirectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_route_decisions_total",
			Help: "Route gate decisions by route class",
		}, []string{"class", "decision"}),
	}
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.errorsTotal,
		m.admissionsTotal,
		m.redirectsTotal,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(route, method, code).Inc()
}

// RecordAdmission counts a sign-in admission outcome.
func (m *Metrics) RecordAdmission(method string, admitted bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if admitted {
		outcome = "admitted"
	}
	m.admissionsTotal.WithLabelValues(method, outcome).Inc()
}

// RecordRouteDecision counts a route gate decision.
func (m *Metrics) RecordRouteDecision(class string, redirected bool) {
	if m == nil {
		return
	}
	decision := "pass"
	if redirected {
		decision = "redirect"
	}
	m.redirectsTotal.WithLabelValues(class, decision).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
