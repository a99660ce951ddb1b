package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	providersReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "providers_reconciled_total",
			Help: "Providers written by the reconciliation engine",
		},
		[]string{"source", "outcome"},
	)

	leadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_created_total",
			Help: "NEW leads provisioned",
		},
		[]string{"source"},
	)

	registryPageFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registry_page_failures_total",
			Help: "Registry pages that failed and were treated as empty",
		},
	)

	syncProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_progress_ratio",
			Help: "Fraction of the registry total covered by the stored cursor",
		},
		[]string{"search_key"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern keeps label cardinality bounded by using the chi pattern.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// Recorder publishes domain counters. The zero value is ready to use.
type Recorder struct{}

func (Recorder) RecordReconcile(source string, added, updated, duplicates, leads int) {
	providersReconciled.WithLabelValues(source, "added").Add(float64(added))
	providersReconciled.WithLabelValues(source, "updated").Add(float64(updated))
	providersReconciled.WithLabelValues(source, "duplicate").Add(float64(duplicates))
	leadsCreated.WithLabelValues(source).Add(float64(leads))
}

func (Recorder) RecordRegistryPageFailures(n int) {
	if n > 0 {
		registryPageFailures.Add(float64(n))
	}
}

func (Recorder) RecordSyncProgress(searchKey string, fraction float64) {
	syncProgress.WithLabelValues(searchKey).Set(fraction)
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}
