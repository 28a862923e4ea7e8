package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	apperrors "github.com/alchemorsel/mealplanner/pkg/errors"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	visitorTTL      = 10 * time.Minute
	cleanupInterval = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter enforces a per-client token bucket keyed by client IP
type ClientRateLimiter struct {
	perMinute   int
	burst       int
	metrics     *monitoring.MetricsCollector
	logger      *zap.Logger
	now         func() time.Time
	mu          sync.Mutex
	visitors    map[string]*visitor
	lastCleanup time.Time
}

// NewClientRateLimiter allows perMinute requests per client with the given burst
func NewClientRateLimiter(perMinute, burst int, metrics *monitoring.MetricsCollector, logger *zap.Logger) *ClientRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ClientRateLimiter{
		perMinute: perMinute,
		burst:     burst,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		visitors:  make(map[string]*visitor),
	}
}

// Allow reports whether the client may make another request
func (l *ClientRateLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60), l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	if now.Sub(l.lastCleanup) > cleanupInterval {
		for k, other := range l.visitors {
			if now.Sub(other.lastSeen) > visitorTTL {
				delete(l.visitors, k)
			}
		}
		l.lastCleanup = now
	}
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the client's limit with 429
func (l *ClientRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !l.Allow(key) {
			l.logger.Warn("Client rate limit exceeded",
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.String("client", key),
				zap.String("path", r.URL.Path),
			)
			l.metrics.RateLimited("client")
			w.Header().Set("Retry-After", "60")
			WriteError(w, r, apperrors.NewTooManyRequestsError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SystemRateLimit caps the total request rate across all clients
func SystemRateLimit(rps int, metrics *monitoring.MetricsCollector, logger *zap.Logger) func(next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), rps)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.Warn("System rate limit exceeded", zap.String("path", r.URL.Path))
				metrics.RateLimited("system")
				w.Header().Set("Retry-After", "1")
				WriteError(w, r, apperrors.NewTooManyRequestsError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			xff = xff[:idx]
		}
		if ip := strings.TrimSpace(xff); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
