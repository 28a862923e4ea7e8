package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var m *MetricsCollector

	assert.NotPanics(t, func() {
		m.PlanGenerated("direct", "ok", time.Second)
		m.SlotResolved("direct", "recorded")
		m.NutritionCorrected()
		m.LLMRequest("openai", "ok", time.Millisecond)
		m.CacheLookup("hit")
		m.RecipeSearch("ok")
		m.RateLimited("client")
		m.RecordError("svc", "boom")
	})

	h := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsCollectorWith(reg, reg, zaptest.NewLogger(t))

	m.PlanGenerated("hybrid", "ok", 2*time.Second)
	m.NutritionCorrected()
	m.NutritionCorrected()
	m.CacheLookup("miss")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.plansGeneratedTotal.WithLabelValues("hybrid", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.nutritionCorrections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheOperations.WithLabelValues("miss")))
}

func TestHTTPMiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsCollectorWith(reg, reg, zaptest.NewLogger(t))

	h := m.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/meal-plans", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/api/v1/meal-plans", "201")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "http_requests_total"))
}

func TestHTTPMiddleware_UsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsCollectorWith(reg, reg, zaptest.NewLogger(t))

	r := chi.NewRouter()
	r.Use(m.HTTPMiddleware)
	r.Get("/history/{userID}", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/history/u-1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/history/u-2", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/history/{userID}", "200")))
}
