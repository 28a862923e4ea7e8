package healthcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// DatabaseChecker checks the PostgreSQL pool
type DatabaseChecker struct {
	pool *pgxpool.Pool
}

// NewDatabaseChecker creates a database health checker
func NewDatabaseChecker(pool *pgxpool.Pool) *DatabaseChecker {
	return &DatabaseChecker{pool: pool}
}

// Check pings the database and reports pool utilization
func (d *DatabaseChecker) Check(ctx context.Context) Check {
	start := time.Now()
	check := Check{Status: StatusHealthy, LastChecked: start}

	if err := d.pool.Ping(ctx); err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("Database ping failed: %v", err)
		check.Duration = time.Since(start)
		return check
	}

	stats := d.pool.Stat()
	check.Metadata = map[string]interface{}{
		"total_conns":    stats.TotalConns(),
		"idle_conns":     stats.IdleConns(),
		"acquired_conns": stats.AcquiredConns(),
		"max_conns":      stats.MaxConns(),
	}
	if max := stats.MaxConns(); max > 0 && float64(stats.AcquiredConns())/float64(max) > 0.9 {
		check.Status = StatusDegraded
		check.Message = "Database connection pool is nearly exhausted"
	}

	check.Duration = time.Since(start)
	return check
}

// RedisChecker checks the Redis connection
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a Redis health checker
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// Check pings Redis. The cache is optional, so a failure only degrades.
func (r *RedisChecker) Check(ctx context.Context) Check {
	start := time.Now()
	check := Check{Status: StatusHealthy, LastChecked: start}

	if err := r.client.Ping(ctx).Err(); err != nil {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("Redis ping failed: %v", err)
	}

	check.Duration = time.Since(start)
	return check
}

// CustomChecker adapts a function into a Checker
type CustomChecker struct {
	checkFunc func(ctx context.Context) (Status, string, interface{})
}

// NewCustomChecker creates a custom health checker
func NewCustomChecker(fn func(ctx context.Context) (Status, string, interface{})) *CustomChecker {
	return &CustomChecker{checkFunc: fn}
}

// Check runs the wrapped function
func (c *CustomChecker) Check(ctx context.Context) Check {
	start := time.Now()
	status, message, metadata := c.checkFunc(ctx)
	return Check{
		Status:      status,
		Message:     message,
		Metadata:    metadata,
		LastChecked: start,
		Duration:    time.Since(start),
	}
}
