// Package monitoring provides Prometheus metrics for the meal planner
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection. A nil collector is
// valid and records nothing.
type MetricsCollector struct {
	logger   *zap.Logger
	gatherer prometheus.Gatherer

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimitedTotal    *prometheus.CounterVec

	// Generation metrics
	plansGeneratedTotal  *prometheus.CounterVec
	planDuration         *prometheus.HistogramVec
	slotsResolvedTotal   *prometheus.CounterVec
	nutritionCorrections prometheus.Counter
	llmRequestsTotal     *prometheus.CounterVec
	llmRequestDuration   *prometheus.HistogramVec

	// Retrieval metrics
	cacheOperations   *prometheus.CounterVec
	recipeSearchTotal *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a collector on its own registry with the Go
// and process collectors attached
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewMetricsCollectorWith(reg, reg, logger)
}

// NewMetricsCollectorWith registers the collector's metrics on reg
func NewMetricsCollectorWith(reg prometheus.Registerer, gatherer prometheus.Gatherer, logger *zap.Logger) *MetricsCollector {
	factory := promauto.With(reg)

	return &MetricsCollector{
		logger:   logger,
		gatherer: gatherer,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 240},
			},
			[]string{"method", "path"},
		),
		rateLimitedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_rate_limited_total",
				Help: "Requests rejected by a rate limiter",
			},
			[]string{"scope"},
		),

		plansGeneratedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealplan_generations_total",
				Help: "Meal plans produced, by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		planDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mealplan_generation_duration_seconds",
				Help:    "End-to-end plan generation time",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 180},
			},
			[]string{"strategy"},
		),
		slotsResolvedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealplan_slots_total",
				Help: "Meal slots resolved, by strategy and terminal status",
			},
			[]string{"strategy", "status"},
		),
		nutritionCorrections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mealplan_nutrition_corrections_total",
				Help: "Generated meals whose nutrition was replaced by candidate values",
			},
		),
		llmRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM requests",
			},
			[]string{"provider", "status"},
		),
		llmRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "LLM request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"provider"},
		),

		cacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candidate_cache_operations_total",
				Help: "Candidate cache lookups by result",
			},
			[]string{"result"},
		),
		recipeSearchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipe_search_requests_total",
				Help: "Recipe search calls by status",
			},
			[]string{"status"},
		),

		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors",
			},
			[]string{"service", "error_type"},
		),
	}
}

// HTTPMiddleware records request counts and latency, labelled by chi route
// pattern when mounted inside a chi router
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RateLimited records a rejected request
func (m *MetricsCollector) RateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimitedTotal.WithLabelValues(scope).Inc()
}

// PlanGenerated records a finished plan
func (m *MetricsCollector) PlanGenerated(strategy, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.plansGeneratedTotal.WithLabelValues(strategy, outcome).Inc()
	m.planDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// SlotResolved records the terminal status of a meal slot
func (m *MetricsCollector) SlotResolved(strategy, status string) {
	if m == nil {
		return
	}
	m.slotsResolvedTotal.WithLabelValues(strategy, status).Inc()
}

// NutritionCorrected records a nutrition overwrite
func (m *MetricsCollector) NutritionCorrected() {
	if m == nil {
		return
	}
	m.nutritionCorrections.Inc()
}

// LLMRequest records a language model call
func (m *MetricsCollector) LLMRequest(provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.llmRequestsTotal.WithLabelValues(provider, status).Inc()
	m.llmRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// CacheLookup records a candidate cache result: hit, miss or store_error
func (m *MetricsCollector) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheOperations.WithLabelValues(result).Inc()
}

// RecipeSearch records a recipe search call
func (m *MetricsCollector) RecipeSearch(status string) {
	if m == nil {
		return
	}
	m.recipeSearchTotal.WithLabelValues(status).Inc()
}

// RecordError records an error occurrence
func (m *MetricsCollector) RecordError(service, errorType string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(service, errorType).Inc()
}

// Handler returns the Prometheus metrics handler
func (m *MetricsCollector) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
