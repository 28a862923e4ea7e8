package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"go.uber.org/zap"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecker reports the availability of the configured AI providers
type HealthChecker struct {
	providers []outbound.TextGenerator
	logger    *zap.Logger
}

// NewHealthChecker creates a new AI health checker
func NewHealthChecker(providers []outbound.TextGenerator, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		providers: providers,
		logger:    logger.Named("ai-health"),
	}
}

// AIHealthStatus represents the health status of AI services
type AIHealthStatus struct {
	Overall   string            `json:"overall"`
	Providers map[string]bool   `json:"providers"`
	Details   map[string]string `json:"details"`
	LastCheck time.Time         `json:"last_check"`
}

// CheckHealth probes every provider that exposes a health check. Providers
// without one are reported as configured.
func (h *HealthChecker) CheckHealth(ctx context.Context) *AIHealthStatus {
	status := &AIHealthStatus{
		Providers: make(map[string]bool),
		Details:   make(map[string]string),
		LastCheck: time.Now(),
	}

	var healthyCount int
	for _, p := range h.providers {
		name := p.Name()

		hc, ok := p.(healthChecker)
		if !ok {
			status.Providers[name] = true
			status.Details[name] = "Configured"
			healthyCount++
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := hc.HealthCheck(checkCtx)
		cancel()

		if err != nil {
			status.Providers[name] = false
			status.Details[name] = fmt.Sprintf("Unhealthy: %v", err)
			h.logger.Warn("AI provider health check failed", zap.String("provider", name), zap.Error(err))
			continue
		}
		status.Providers[name] = true
		status.Details[name] = "Healthy"
		healthyCount++
	}

	switch {
	case len(h.providers) == 0 || healthyCount == 0:
		status.Overall = "critical"
	case healthyCount < len(h.providers):
		status.Overall = "degraded"
	default:
		status.Overall = "healthy"
	}

	return status
}

// IsHealthy returns true if at least one AI provider is available
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.CheckHealth(ctx).Overall != "critical"
}
