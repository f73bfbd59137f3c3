package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blogem/linkedin-login/services"
)

// Metrics owns the application's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	logins          *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the login and HTTP collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkedin_login_total",
			Help: "LinkedIn login attempts by outcome",
		}, []string{"outcome"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests processed",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.logins,
		m.requestsTotal,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry for GET /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// LoginSucceeded counts a completed login, split by whether it registered
// a new account
func (m *Metrics) LoginSucceeded(_ context.Context, e services.LoginEvent) {
	outcome := "linked"
	if e.Created {
		outcome = "registered"
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// LoginFailed counts a failed login by failure outcome
func (m *Metrics) LoginFailed(_ context.Context, e services.LoginFailure) {
	m.logins.WithLabelValues(e.Outcome()).Inc()
}

// Middleware records request counts and latency per chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// A handler that writes nothing still answers 200
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := routePattern(r)
		method := strings.ToUpper(r.Method)
		m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// routePattern keeps label cardinality bounded by using the matched route
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
