package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Interview lifecycle
	InterviewsCreatedTotal   *prometheus.CounterVec
	InterviewsClaimedTotal   prometheus.Counter
	InterviewsCompletedTotal prometheus.Counter
	InterviewsByStatus       *prometheus.GaugeVec

	// Artifacts
	ArtifactUploadsTotal *prometheus.CounterVec
	ArtifactUploadBytes  prometheus.Histogram

	// Auth
	TokenCacheHitsTotal   prometheus.Counter
	TokenCacheMissesTotal prometheus.Counter
	RateLimitedTotal      *prometheus.CounterVec

	// Database pool
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verity_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verity_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		InterviewsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verity_interviews_created_total",
				Help: "Interviews created, by origin",
			},
			[]string{"origin"},
		),
		InterviewsClaimedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "verity_interviews_claimed_total",
				Help: "Interviews claimed by an interviewee",
			},
		),
		InterviewsCompletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "verity_interviews_completed_total",
				Help: "Interviews marked completed",
			},
		),
		InterviewsByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "verity_interviews",
				Help: "Current number of interviews by status",
			},
			[]string{"status"},
		),

		ArtifactUploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verity_artifact_uploads_total",
				Help: "Artifact intake attempts",
			},
			[]string{"kind", "result"},
		),
		ArtifactUploadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "verity_artifact_upload_bytes",
				Help:    "Size of uploaded audio recordings in bytes",
				Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
			},
		),

		TokenCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "verity_token_cache_hits_total",
				Help: "Identity token verifications served from cache",
			},
		),
		TokenCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "verity_token_cache_misses_total",
				Help: "Identity token verifications that hit the identity provider",
			},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verity_rate_limited_total",
				Help: "Requests rejected by the public endpoint rate limiter",
			},
			[]string{"route"},
		),

		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "verity_db_connections_open",
				Help: "Open database connections",
			},
		),
		DBConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "verity_db_connections_in_use",
				Help: "Database connections currently in use",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "verity_db_connections_idle",
				Help: "Idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.InterviewsCreatedTotal,
		m.InterviewsClaimedTotal,
		m.InterviewsCompletedTotal,
		m.InterviewsByStatus,
		m.ArtifactUploadsTotal,
		m.ArtifactUploadBytes,
		m.TokenCacheHitsTotal,
		m.TokenCacheMissesTotal,
		m.RateLimitedTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
	)

	return m
}

// InterviewCreated counts a newly minted interview
func (m *Metrics) InterviewCreated(origin string) {
	if m == nil {
		return
	}
	m.InterviewsCreatedTotal.WithLabelValues(origin).Inc()
}

// InterviewClaimed counts a successful claim
func (m *Metrics) InterviewClaimed() {
	if m == nil {
		return
	}
	m.InterviewsClaimedTotal.Inc()
}

// InterviewCompleted counts a successful completion
func (m *Metrics) InterviewCompleted() {
	if m == nil {
		return
	}
	m.InterviewsCompletedTotal.Inc()
}

// SetInterviewCounts replaces the per-status interview gauges
func (m *Metrics) SetInterviewCounts(counts map[string]int64) {
	if m == nil {
		return
	}
	m.InterviewsByStatus.Reset()
	for status, n := range counts {
		m.InterviewsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// ArtifactUpload records an intake attempt. size is ignored when <= 0.
func (m *Metrics) ArtifactUpload(kind, result string, size int64) {
	if m == nil {
		return
	}
	m.ArtifactUploadsTotal.WithLabelValues(kind, result).Inc()
	if size > 0 {
		m.ArtifactUploadBytes.Observe(float64(size))
	}
}

// TokenCache records a token cache lookup
func (m *Metrics) TokenCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.TokenCacheHitsTotal.Inc()
		return
	}
	m.TokenCacheMissesTotal.Inc()
}

// RateLimited counts a rejected request
func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(route).Inc()
}

// UpdateDBStats copies connection pool statistics into gauges
func (m *Metrics) UpdateDBStats(stats sql.DBStats) {
	if m == nil {
		return
	}
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel returns the mux path template so labels stay low-cardinality
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
