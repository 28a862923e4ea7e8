// Package config provides configuration management for the meal planner
// Using Viper for flexible configuration from files, environment, and flags
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	AI           AIConfig           `mapstructure:"ai"`
	Generation   GenerationConfig   `mapstructure:"generation"`
	RecipeSearch RecipeSearchConfig `mapstructure:"recipe_search"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Database     DatabaseConfig     `mapstructure:"database"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AIConfig holds language model provider configuration
type AIConfig struct {
	Provider          string        `mapstructure:"provider"`
	FallbackProviders []string      `mapstructure:"fallback_providers"`
	OpenAIKey         string        `mapstructure:"openai_key"`
	OpenAIModel       string        `mapstructure:"openai_model"`
	OpenAIBaseURL     string        `mapstructure:"openai_base_url"`
	OllamaHost        string        `mapstructure:"ollama_host"`
	OllamaModel       string        `mapstructure:"ollama_model"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// GenerationConfig holds strategy selection and orchestration settings
type GenerationConfig struct {
	Mode               string        `mapstructure:"mode"`
	HybridRAGRatio     float64       `mapstructure:"hybrid_rag_ratio"`
	PlanTimeout        time.Duration `mapstructure:"plan_timeout"`
	MaxConcurrentDays  int           `mapstructure:"max_concurrent_days"`
	PromptCandidates   int           `mapstructure:"prompt_candidates"`
	NutritionTolerance float64       `mapstructure:"nutrition_tolerance"`
	PreferencesWin     bool          `mapstructure:"preferences_win"`
}

// RecipeSearchConfig holds Edamam recipe search configuration
type RecipeSearchConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	AppID   string        `mapstructure:"app_id"`
	AppKey  string        `mapstructure:"app_key"`
	UserID  string        `mapstructure:"user_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds candidate cache configuration
type CacheConfig struct {
	Backend      string        `mapstructure:"backend"`
	CandidateTTL time.Duration `mapstructure:"candidate_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds plan history database configuration
type DatabaseConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	MaxConns      int32  `mapstructure:"max_conns"`
	RunMigrations bool   `mapstructure:"run_migrations"`
}

// RateLimitConfig holds HTTP rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requests_per_min"`
	BurstSize      int  `mapstructure:"burst_size"`
	SystemMaxRPS   int  `mapstructure:"system_max_rps"`
}

// MonitoringConfig holds metrics and error reporting configuration
type MonitoringConfig struct {
	MetricsEnabled    bool   `mapstructure:"metrics_enabled"`
	SentryDSN         string `mapstructure:"sentry_dsn"`
	SentryEnvironment string `mapstructure:"sentry_environment"`
}

// TracingConfig holds OpenTelemetry export configuration
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load loads configuration from various sources
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/mealplanner")
	}

	v.SetEnvPrefix("MEALPLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "mealplanner")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "240s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// AI defaults
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.fallback_providers", []string{})
	v.SetDefault("ai.openai_key", "")
	v.SetDefault("ai.openai_model", "gpt-4o-mini")
	v.SetDefault("ai.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.ollama_host", "http://localhost:11434")
	v.SetDefault("ai.ollama_model", "llama3.2:3b")
	v.SetDefault("ai.max_tokens", 3000)
	v.SetDefault("ai.temperature", 0.9)
	v.SetDefault("ai.call_timeout", "30s")
	v.SetDefault("ai.requests_per_second", 5.0)
	v.SetDefault("ai.burst", 5)

	// Generation defaults
	v.SetDefault("generation.mode", "direct")
	v.SetDefault("generation.hybrid_rag_ratio", 0.7)
	v.SetDefault("generation.plan_timeout", "3m")
	v.SetDefault("generation.max_concurrent_days", 3)
	v.SetDefault("generation.prompt_candidates", 3)
	v.SetDefault("generation.nutrition_tolerance", 0.2)
	v.SetDefault("generation.preferences_win", false)

	// Recipe search defaults
	v.SetDefault("recipe_search.enabled", true)
	v.SetDefault("recipe_search.base_url", "https://api.edamam.com/api/recipes/v2")
	v.SetDefault("recipe_search.app_id", "")
	v.SetDefault("recipe_search.app_key", "")
	v.SetDefault("recipe_search.user_id", "")
	v.SetDefault("recipe_search.timeout", "10s")

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.candidate_ttl", "3600s")
	v.SetDefault("cache.key_prefix", "mealplanner:candidates:")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.run_migrations", true)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_min", 10)
	v.SetDefault("rate_limit.burst_size", 10)
	v.SetDefault("rate_limit.system_max_rps", 50)

	// Monitoring defaults
	v.SetDefault("monitoring.metrics_enabled", true)
	v.SetDefault("monitoring.sentry_dsn", "")
	v.SetDefault("monitoring.sentry_environment", "production")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "http://localhost:4318")
	v.SetDefault("tracing.sample_ratio", 0.1)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch strings.ToLower(c.Generation.Mode) {
	case "direct", "llm_only", "retrieval_augmented", "rag", "hybrid", "bulk", "fast_llm":
	default:
		return fmt.Errorf("generation.mode %q is not supported", c.Generation.Mode)
	}

	if c.Generation.HybridRAGRatio < 0 || c.Generation.HybridRAGRatio > 1 {
		return fmt.Errorf("generation.hybrid_rag_ratio must be between 0.0 and 1.0")
	}

	if c.Generation.MaxConcurrentDays < 1 {
		return fmt.Errorf("generation.max_concurrent_days must be at least 1")
	}

	if c.Cache.CandidateTTL <= 0 {
		return fmt.Errorf("cache.candidate_ttl must be positive")
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis")
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0.0 and 1.0")
	}

	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("database.url is required when database.enabled is true")
	}

	if c.AI.Provider == "openai" && c.AI.OpenAIKey == "" && c.IsProduction() {
		return fmt.Errorf("ai.openai_key is required in production")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// RedisAddr returns the host:port address of the Redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// RecipeSearchConfigured reports whether Edamam credentials are present
func (c *Config) RecipeSearchConfigured() bool {
	return c.RecipeSearch.Enabled && c.RecipeSearch.AppID != "" && c.RecipeSearch.AppKey != ""
}
