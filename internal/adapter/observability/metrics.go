package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)
	AIRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_retries_total",
			Help: "Total number of retried AI calls by provider",
		},
		[]string{"provider", "operation"},
	)

	// NormalizerRecoveriesTotal tracks which repair strategy finally produced a
	// parse, keyed by strategy name ("direct", "truncated", "regex", "scan").
	NormalizerRecoveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "normalizer_recoveries_total",
			Help: "Successful response normalizations by recovery strategy",
		},
		[]string{"strategy"},
	)
	NormalizerFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "normalizer_failures_total",
			Help: "Responses that exhausted every recovery strategy",
		},
	)

	// Evaluation outcome distribution
	EvaluationVerdictTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_verdict_total",
			Help: "Evaluations by normalized verdict",
		},
		[]string{"verdict"},
	)
	EvaluationDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evaluation_degraded_total",
			Help: "Evaluations that fell back to a degraded default result",
		},
	)
)

// InitMetrics registers all collectors once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AIRetriesTotal)
	prometheus.MustRegister(NormalizerRecoveriesTotal)
	prometheus.MustRegister(NormalizerFailuresTotal)
	prometheus.MustRegister(EvaluationVerdictTotal)
	prometheus.MustRegister(EvaluationDegradedTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := strconv.Itoa(ww.Status())
		HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}
