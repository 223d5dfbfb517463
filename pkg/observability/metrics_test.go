package observability

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.InterviewCreated("generated")
		m.InterviewClaimed()
		m.InterviewCompleted()
		m.SetInterviewCounts(map[string]int64{"pending": 1})
		m.ArtifactUpload("audio", "ok", 10)
		m.TokenCache(true)
		m.RateLimited("/interview/{token}")
		m.UpdateDBStats(sql.DBStats{})
	})
}

func TestMetrics_DomainCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.InterviewCreated("reusable_link")
	m.InterviewCreated("reusable_link")
	m.InterviewCompleted()
	m.TokenCache(false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.InterviewsCreatedTotal.WithLabelValues("reusable_link")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InterviewsCompletedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TokenCacheMissesTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.TokenCacheHitsTotal))
}

func TestMetrics_SetInterviewCountsResets(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetInterviewCounts(map[string]int64{"pending": 3, "completed": 5})
	m.SetInterviewCounts(map[string]int64{"completed": 6})

	assert.Equal(t, float64(6), testutil.ToFloat64(m.InterviewsByStatus.WithLabelValues("completed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.InterviewsByStatus))
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/interview/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/interview/abc", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/interview/{token}", "410")))

	rec := httptest.NewRecorder()
	MetricsHandler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "verity_http_requests_total"))
}
