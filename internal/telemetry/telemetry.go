// Package telemetry defines the Prometheus metrics for the lookup service.
package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emaillookup_lookups_total",
			Help: "Total lookup pipeline runs, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	providerResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emaillookup_provider_results_total",
			Help: "Provider chain outcomes, labeled by provider and result.",
		},
		[]string{"provider", "result"},
	)

	cacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emaillookup_cache_ops_total",
			Help: "Cache operations, labeled by operation and result.",
		},
		[]string{"op", "result"},
	)

	rateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "emaillookup_rate_limit_rejections_total",
			Help: "Requests rejected by the inbound rate limiter.",
		},
	)

	outboundRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emaillookup_outbound_requests_total",
			Help: "Outbound HTTP fetches, labeled by host and status class.",
		},
		[]string{"host", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emaillookup_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "route"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emaillookup_http_requests_total",
			Help: "Total inbound HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)
)

// ObserveLookup records a pipeline outcome (cache_hit, store_hit, resolved, miss).
func ObserveLookup(outcome string) {
	lookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveProvider records one provider's result (found, miss, error, skipped).
func ObserveProvider(provider, result string) {
	providerResultsTotal.WithLabelValues(provider, result).Inc()
}

// ObserveCache records a cache operation result.
func ObserveCache(op, result string) {
	cacheOpsTotal.WithLabelValues(op, result).Inc()
}

// ObserveRateLimitRejection counts an inbound 429.
func ObserveRateLimitRejection() {
	rateLimitRejectionsTotal.Inc()
}

// ObserveOutboundRequest records one outbound fetch by host and status class.
func ObserveOutboundRequest(host string, statusCode int) {
	status := "error"
	if statusCode > 0 {
		status = statusClass(statusCode)
	}
	outboundRequestsTotal.WithLabelValues(host, status).Inc()
}

// ObserveHTTPRequest records an inbound request's method, route, code and latency.
func ObserveHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, statusClass(statusCode)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler exposes the Prometheus registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
