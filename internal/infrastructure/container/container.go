// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"errors"
	"net/http"
	"time"

	mealplanapp "github.com/alchemorsel/mealplanner/internal/application/mealplan"
	"github.com/alchemorsel/mealplanner/internal/application/query"
	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/ai"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/cache"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/config"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/http/server"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/persistence/postgres"
	redisrepo "github.com/alchemorsel/mealplanner/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/recipesearch"
	"github.com/alchemorsel/mealplanner/internal/ports/inbound"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"github.com/alchemorsel/mealplanner/pkg/healthcheck"
	"github.com/alchemorsel/mealplanner/pkg/logger"
	"github.com/getsentry/sentry-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ConfigPath is the optional configuration file location
type ConfigPath string

// Module provides the full API server graph
var Module = fx.Options(
	CoreModule,
	HTTPModule,
	SentryModule,
	LifecycleModule,
)

// CoreModule provides everything needed to generate plans, without the HTTP surface
var CoreModule = fx.Options(
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	HealthModule,
	AIModule,
	SearchModule,
	CacheModule,
	PersistenceModule,
	ServiceModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// MonitoringModule provides metrics and tracing
var MonitoringModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) *monitoring.MetricsCollector {
		if !cfg.Monitoring.MetricsEnabled {
			return nil
		}
		return monitoring.NewMetricsCollector(log)
	},
	newTracerProvider,
)

func newTracerProvider(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracerProvider, error) {
	tp, err := monitoring.NewTracerProvider(context.Background(), monitoring.TracingConfig{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Enabled:        cfg.Tracing.Enabled,
	}, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: tp.Shutdown})
	return tp, nil
}

// HealthModule provides the health check registry. Components register
// their own checkers as they are constructed.
var HealthModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) *healthcheck.HealthCheck {
		return healthcheck.New(cfg.App.Name, cfg.App.Version, log)
	},
)

// aiChecker reports provider outages as degraded
func aiChecker(checker *ai.HealthChecker) healthcheck.Checker {
	return healthcheck.NewCustomChecker(func(ctx context.Context) (healthcheck.Status, string, interface{}) {
		status := checker.CheckHealth(ctx)
		if status.Overall == "healthy" {
			return healthcheck.StatusHealthy, "", status
		}
		return healthcheck.StatusDegraded, "language model providers unavailable, serving fallback meals", status
	})
}

// AIModule provides the language model
var AIModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger, metrics *monitoring.MetricsCollector, tp *monitoring.TracerProvider, health *healthcheck.HealthCheck) (outbound.TextGenerator, error) {
		gen, providers, err := ai.NewGenerator(cfg.AI, log, metrics, tp.Tracer("mealplanner/ai"))
		if err != nil {
			return nil, err
		}
		health.Register("ai", aiChecker(ai.NewHealthChecker(providers, log)))
		return gen, nil
	},
)

// SearchModule provides the recipe search retriever
var SearchModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger, metrics *monitoring.MetricsCollector) outbound.CandidateRetriever {
		if !cfg.RecipeSearchConfigured() {
			log.Info("Recipe search not configured, retrieval strategies will generate directly")
			return recipesearch.Disabled{}
		}
		return recipesearch.NewClient(cfg.RecipeSearch, log, metrics)
	},
)

// CacheModule provides the candidate cache and its backing store
var CacheModule = fx.Provide(
	newCacheRepository,
	func(cfg *config.Config, store outbound.CacheRepository, retriever outbound.CandidateRetriever, log *zap.Logger, metrics *monitoring.MetricsCollector) outbound.CandidateSource {
		return cache.NewCandidateCache(store, retriever, cache.CandidateCacheConfig{
			TTL:       cfg.Cache.CandidateTTL,
			KeyPrefix: cfg.Cache.KeyPrefix,
		}, log, metrics)
	},
)

func newCacheRepository(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, health *healthcheck.HealthCheck) outbound.CacheRepository {
	if cfg.Cache.Backend == "redis" {
		client := redisrepo.NewClient(cfg.Redis)
		health.Register("cache", healthcheck.NewRedisChecker(client))
		repo := redisrepo.NewCacheRepository(client, log)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := repo.Ping(ctx); err != nil {
					log.Warn("Redis unavailable, candidate lookups will miss", zap.Error(err))
				}
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return repo.Close()
			},
		})
		log.Info("Using Redis candidate cache", zap.String("addr", cfg.RedisAddr()))
		return repo
	}

	repo := memory.NewCacheRepository()
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return repo.Close()
		},
	})
	return repo
}

// PersistenceModule provides the plan history store
var PersistenceModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, health *healthcheck.HealthCheck) (outbound.PlanRepository, error) {
		if !cfg.Database.Enabled {
			return memory.NewPlanRepository(), nil
		}

		pool, err := postgres.Connect(context.Background(), cfg.Database, log)
		if err != nil {
			return nil, err
		}
		health.Register("database", healthcheck.NewDatabaseChecker(pool))
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				pool.Close()
				return nil
			},
		})
		return postgres.NewPlanRepository(pool, log), nil
	},
)

// ServiceModule provides the application services
var ServiceModule = fx.Provide(
	newSelector,
	newOrchestrator,
	query.NewValidator,
	fx.Annotate(
		query.NewParser,
		fx.As(new(mealplanapp.QueryParser)),
	),
	fx.Annotate(
		mealplanapp.NewService,
		fx.As(new(inbound.MealPlanService)),
	),
)

func newSelector(
	cfg *config.Config,
	llm outbound.TextGenerator,
	candidates outbound.CandidateSource,
	log *zap.Logger,
	metrics *monitoring.MetricsCollector,
) (*mealplanapp.Selector, error) {
	mode, err := mealplan.ParseMode(cfg.Generation.Mode)
	if err != nil {
		return nil, err
	}
	return mealplanapp.NewStrategySelector(mode, llm, candidates, mealplanapp.StrategyConfig{
		CallTimeout:        cfg.AI.CallTimeout,
		MaxTokens:          cfg.AI.MaxTokens,
		Temperature:        cfg.AI.Temperature,
		HybridRAGRatio:     cfg.Generation.HybridRAGRatio,
		PromptCandidates:   cfg.Generation.PromptCandidates,
		NutritionTolerance: cfg.Generation.NutritionTolerance,
	}, log, metrics), nil
}

func newOrchestrator(cfg *config.Config, selector *mealplanapp.Selector, log *zap.Logger, metrics *monitoring.MetricsCollector) *mealplanapp.Orchestrator {
	policy := mealplanapp.DefaultConflictPolicy()
	policy.PreferencesWin = cfg.Generation.PreferencesWin
	return mealplanapp.NewOrchestrator(selector, mealplanapp.OrchestratorConfig{
		MaxConcurrentDays: cfg.Generation.MaxConcurrentDays,
		PlanTimeout:       cfg.Generation.PlanTimeout,
		Policy:            policy,
	}, log, metrics)
}

// HTTPModule provides the API server
var HTTPModule = fx.Provide(
	func(
		cfg *config.Config,
		log *zap.Logger,
		service inbound.MealPlanService,
		health *healthcheck.HealthCheck,
		metrics *monitoring.MetricsCollector,
		tp *monitoring.TracerProvider,
	) *server.Server {
		deps := server.Dependencies{
			Service: service,
			Health:  health,
			Metrics: metrics,
		}
		if cfg.Tracing.Enabled {
			deps.Tracing = tp.Provider()
		}
		return server.NewServer(cfg, log, deps)
	},
)

// SentryModule enables error reporting when a DSN is configured
var SentryModule = fx.Invoke(initSentry)

func initSentry(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) {
	if cfg.Monitoring.SentryDSN == "" {
		return
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Monitoring.SentryDSN,
		Environment:      cfg.Monitoring.SentryEnvironment,
		Release:          cfg.App.Version,
		AttachStacktrace: true,
	})
	if err != nil {
		log.Warn("Sentry initialization failed", zap.Error(err))
		return
	}
	log.Info("Sentry initialized",
		zap.String("environment", cfg.Monitoring.SentryEnvironment),
		zap.String("release", cfg.App.Version),
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sentry.Flush(2 * time.Second)
			return nil
		},
	})
}

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	srv *server.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting meal planner",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("generation_mode", cfg.Generation.Mode),
			)

			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server failed", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down meal planner")

			if err := srv.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}
