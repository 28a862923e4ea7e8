// Package server provides the JSON API HTTP server
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alchemorsel/mealplanner/internal/infrastructure/config"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplanner/internal/ports/inbound"
	"github.com/alchemorsel/mealplanner/pkg/healthcheck"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Server represents the meal plan API server
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
	handler http.Handler
}

// Dependencies groups what the router needs
type Dependencies struct {
	Service inbound.MealPlanService
	Health  *healthcheck.HealthCheck
	Metrics *monitoring.MetricsCollector
	Tracing trace.TracerProvider
	OpenAPI *OpenAPIHandler
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	s := &Server{
		config: cfg,
		logger: logger.Named("http"),
	}
	if deps.OpenAPI == nil {
		deps.OpenAPI = NewOpenAPIHandler(s.logger)
	}
	if deps.Health == nil {
		deps.Health = healthcheck.New(cfg.App.Name, cfg.App.Version, s.logger)
	}

	s.handler = s.setupRoutes(deps)
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(deps.Metrics.HTTPMiddleware)
	r.Use(middleware.Sentry(s.logger))
	r.Use(middleware.Security())
	r.Use(middleware.CORS())

	r.Get("/health", deps.Health.Handler())
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	if s.config.Monitoring.MetricsEnabled {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/openapi.yaml", deps.OpenAPI.ServeYAML)
		r.Get("/openapi.json", deps.OpenAPI.ServeJSON)

		r.Group(func(r chi.Router) {
			if s.config.RateLimit.Enabled {
				r.Use(middleware.SystemRateLimit(s.config.RateLimit.SystemMaxRPS, deps.Metrics, s.logger))
				limiter := middleware.NewClientRateLimiter(
					s.config.RateLimit.RequestsPerMin,
					s.config.RateLimit.BurstSize,
					deps.Metrics,
					s.logger,
				)
				r.Use(limiter.Middleware)
			}
			r.Use(middleware.JSONOnly())
			r.Use(chimiddleware.Timeout(s.requestTimeout()))

			r.Route("/meal-plans", handlers.NewMealPlanHandlers(deps.Service, s.logger).Routes)
		})
	})

	if deps.Tracing == nil {
		return r
	}
	return otelhttp.NewHandler(r, "mealplanner-api", otelhttp.WithTracerProvider(deps.Tracing))
}

// requestTimeout bounds a request by the plan deadline plus some margin
func (s *Server) requestTimeout() time.Duration {
	timeout := s.config.Generation.PlanTimeout + 10*time.Second
	if s.config.Server.WriteTimeout > 0 && timeout > s.config.Server.WriteTimeout {
		timeout = s.config.Server.WriteTimeout
	}
	return timeout
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Server returns the underlying HTTP server instance
func (s *Server) Server() *http.Server {
	return s.server
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info("Starting meal plan API server", zap.String("address", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the API server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server...")
	return s.server.Shutdown(ctx)
}
