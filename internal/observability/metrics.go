package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Abuse-control metrics
	RateLimitedTotal   prometheus.Counter
	LoginFailuresTotal prometheus.Counter
	LoginLockoutsTotal prometheus.Counter

	// Business metrics
	RatingsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rategame_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rategame_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rategame_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
		LoginFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rategame_login_failures_total",
			Help: "Total number of failed login attempts",
		}),
		LoginLockoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rategame_login_lockouts_total",
			Help: "Total number of times a client address was locked out",
		}),
		RatingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rategame_ratings_total",
				Help: "Total number of ratings submitted",
			},
			[]string{"score"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RateLimitedTotal,
		m.LoginFailuresTotal,
		m.LoginLockoutsTotal,
		m.RatingsTotal,
	)

	return m
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RateLimited records a request rejected by the rate limiter
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

// LoginFailed records a failed login, and a lockout if it triggered one
func (m *Metrics) LoginFailed(lockedOut bool) {
	if m == nil {
		return
	}
	m.LoginFailuresTotal.Inc()
	if lockedOut {
		m.LoginLockoutsTotal.Inc()
	}
}

// Rated records a submitted rating
func (m *Metrics) Rated(score int) {
	if m == nil {
		return
	}
	m.RatingsTotal.WithLabelValues(strconv.Itoa(score)).Inc()
}

// Handler serves the registry in the Prometheus text format
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
