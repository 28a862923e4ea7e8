// Package ai composes the language model providers into the single
// text generator used by the planner
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/mealplanner/internal/infrastructure/ai/ollama"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/ai/openai"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/config"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	apperrors "github.com/alchemorsel/mealplanner/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrOffline is returned by the offline generator
var ErrOffline = errors.New("language model disabled")

// NewGenerator builds the configured provider followed by its fallbacks,
// instrumented and throttled. A nil tracer disables spans.
func NewGenerator(cfg config.AIConfig, logger *zap.Logger, metrics *monitoring.MetricsCollector, tracer trace.Tracer) (outbound.TextGenerator, []outbound.TextGenerator, error) {
	names := append([]string{cfg.Provider}, cfg.FallbackProviders...)

	seen := make(map[string]bool)
	var providers []outbound.TextGenerator
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		p, err := newProvider(name, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, NewInstrumented(p, metrics, tracer))
	}
	if len(providers) == 0 {
		return nil, nil, fmt.Errorf("no AI provider configured")
	}

	var gen outbound.TextGenerator = NewFallbackChain(providers, logger)
	if cfg.RequestsPerSecond > 0 {
		gen = NewRateLimited(gen, cfg.RequestsPerSecond, cfg.Burst)
	}
	return gen, providers, nil
}

func newProvider(name string, cfg config.AIConfig, logger *zap.Logger) (outbound.TextGenerator, error) {
	switch name {
	case "openai":
		return openai.NewClient(cfg, logger), nil
	case "ollama":
		return ollama.NewClient(cfg, logger), nil
	case "mock", "offline":
		return OfflineGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", name)
	}
}

// FallbackChain tries each provider in order until one succeeds
type FallbackChain struct {
	providers []outbound.TextGenerator
	logger    *zap.Logger
}

// NewFallbackChain creates a chain over providers
func NewFallbackChain(providers []outbound.TextGenerator, logger *zap.Logger) *FallbackChain {
	return &FallbackChain{
		providers: providers,
		logger:    logger.Named("ai-chain"),
	}
}

// Name returns the name of the primary provider
func (c *FallbackChain) Name() string {
	if len(c.providers) == 0 {
		return "none"
	}
	return c.providers[0].Name()
}

// Generate returns the first successful provider response
func (c *FallbackChain) Generate(ctx context.Context, req outbound.TextRequest) (*outbound.TextResponse, error) {
	var errs []error
	for i, p := range c.providers {
		resp, err := p.Generate(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("Fallback provider succeeded", zap.String("provider", p.Name()))
			}
			return resp, nil
		}

		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		if i+1 < len(c.providers) {
			c.logger.Warn("AI provider failed, trying fallback",
				zap.String("provider", p.Name()),
				zap.String("next_provider", c.providers[i+1].Name()),
				zap.Error(err))
		}
	}

	return nil, apperrors.NewExternalServiceError(c.Name(), errors.Join(errs...))
}

// RateLimitedGenerator throttles calls with a token bucket
type RateLimitedGenerator struct {
	next    outbound.TextGenerator
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a limiter of rps requests per second
func NewRateLimited(next outbound.TextGenerator, rps float64, burst int) *RateLimitedGenerator {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedGenerator{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Name returns the wrapped generator's name
func (g *RateLimitedGenerator) Name() string {
	return g.next.Name()
}

// Generate waits for a token, then delegates
func (g *RateLimitedGenerator) Generate(ctx context.Context, req outbound.TextRequest) (*outbound.TextResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewExternalServiceError(g.next.Name(), fmt.Errorf("rate limiter: %w", err))
	}
	return g.next.Generate(ctx, req)
}

// InstrumentedGenerator records call metrics and a span per call
type InstrumentedGenerator struct {
	next    outbound.TextGenerator
	metrics *monitoring.MetricsCollector
	tracer  trace.Tracer
}

// NewInstrumented wraps next with metrics and tracing
func NewInstrumented(next outbound.TextGenerator, metrics *monitoring.MetricsCollector, tracer trace.Tracer) *InstrumentedGenerator {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &InstrumentedGenerator{next: next, metrics: metrics, tracer: tracer}
}

// Name returns the wrapped generator's name
func (g *InstrumentedGenerator) Name() string {
	return g.next.Name()
}

// Generate delegates and records the outcome
func (g *InstrumentedGenerator) Generate(ctx context.Context, req outbound.TextRequest) (*outbound.TextResponse, error) {
	ctx, span := g.tracer.Start(ctx, "llm.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", g.next.Name()),
			attribute.Bool("llm.json_mode", req.JSONMode),
			attribute.Int("llm.max_tokens", req.MaxTokens),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := g.next.Generate(ctx, req)

	status := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	}
	g.metrics.LLMRequest(g.next.Name(), status, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	} else if resp != nil {
		span.SetAttributes(
			attribute.String("llm.model", resp.Model),
			attribute.Int("llm.prompt_tokens", resp.Usage.PromptTokens),
			attribute.Int("llm.completion_tokens", resp.Usage.CompletionTokens),
		)
	}
	return resp, err
}

// HealthCheck forwards to the wrapped provider when it supports health checks
func (g *InstrumentedGenerator) HealthCheck(ctx context.Context) error {
	if hc, ok := g.next.(healthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// OfflineGenerator never reaches a model. Every slot it serves falls back
// to the deterministic meal for its type.
type OfflineGenerator struct{}

// Name returns "offline"
func (OfflineGenerator) Name() string {
	return "offline"
}

// Generate always fails with ErrOffline
func (OfflineGenerator) Generate(ctx context.Context, req outbound.TextRequest) (*outbound.TextResponse, error) {
	return nil, ErrOffline
}
