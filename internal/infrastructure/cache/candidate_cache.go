// Package cache provides the shared candidate recipe cache
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCandidateTTL is used when no TTL is configured
const DefaultCandidateTTL = time.Hour

// CandidateCache memoises recipe search results per meal type, restriction
// list and prep-time ceiling. It is safe for concurrent use and shared across
// plans.
type CandidateCache struct {
	store     outbound.CacheRepository
	retriever outbound.CandidateRetriever
	ttl       time.Duration
	prefix    string
	group     singleflight.Group
	logger    *zap.Logger
	metrics   *monitoring.MetricsCollector
}

var _ outbound.CandidateSource = (*CandidateCache)(nil)

// CandidateCacheConfig configures a CandidateCache
type CandidateCacheConfig struct {
	TTL       time.Duration
	KeyPrefix string
}

// NewCandidateCache creates a cache in front of retriever, persisting into store
func NewCandidateCache(
	store outbound.CacheRepository,
	retriever outbound.CandidateRetriever,
	cfg CandidateCacheConfig,
	logger *zap.Logger,
	metrics *monitoring.MetricsCollector,
) *CandidateCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCandidateTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CandidateCache{
		store:     store,
		retriever: retriever,
		ttl:       ttl,
		prefix:    cfg.KeyPrefix,
		logger:    logger.Named("candidate-cache"),
		metrics:   metrics,
	}
}

// CandidateKey builds the cache key. Restrictions are joined in the order
// given, so callers wanting order-insensitive sharing must sort first.
func CandidateKey(mealType mealplan.MealType, restrictions []string, prepTimeMax *int) string {
	prep := "none"
	if prepTimeMax != nil {
		prep = strconv.Itoa(*prepTimeMax)
	}
	return string(mealType) + "|" + strings.Join(restrictions, ",") + "|" + prep
}

// GetOrFetch returns cached candidates or fetches, stores and returns them.
// Concurrent misses on the same key share one retriever call. Store failures
// never fail the lookup.
func (c *CandidateCache) GetOrFetch(ctx context.Context, mealType mealplan.MealType, restrictions []string, prepTimeMax *int) []mealplan.CandidateRecipe {
	key := c.prefix + CandidateKey(mealType, restrictions, prepTimeMax)

	if candidates, ok := c.load(ctx, key); ok {
		c.metrics.CacheLookup("hit")
		return candidates
	}

	v, _, shared := c.group.Do(key, func() (interface{}, error) {
		// another flight may have filled the entry between our miss and Do
		if candidates, ok := c.load(ctx, key); ok {
			return candidates, nil
		}

		c.metrics.CacheLookup("miss")
		candidates := c.retriever.Fetch(ctx, mealType, restrictions, prepTimeMax)
		if candidates == nil {
			candidates = []mealplan.CandidateRecipe{}
		}
		if ctx.Err() != nil {
			// a cancelled fetch says nothing about the upstream, keep it out of the store
			return candidates, nil
		}
		c.save(ctx, key, candidates)
		return candidates, nil
	})

	if shared {
		c.logger.Debug("Shared in-flight candidate fetch", zap.String("key", key))
	}

	return cloneCandidates(v.([]mealplan.CandidateRecipe))
}

// Invalidate drops a cached entry
func (c *CandidateCache) Invalidate(ctx context.Context, mealType mealplan.MealType, restrictions []string, prepTimeMax *int) error {
	return c.store.Delete(ctx, c.prefix+CandidateKey(mealType, restrictions, prepTimeMax))
}

func (c *CandidateCache) load(ctx context.Context, key string) ([]mealplan.CandidateRecipe, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, outbound.ErrCacheMiss) {
			c.metrics.CacheLookup("store_error")
			c.logger.Warn("Candidate cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var candidates []mealplan.CandidateRecipe
	if err := json.Unmarshal(data, &candidates); err != nil {
		c.metrics.CacheLookup("store_error")
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if candidates == nil {
		candidates = []mealplan.CandidateRecipe{}
	}
	return candidates, true
}

func (c *CandidateCache) save(ctx context.Context, key string, candidates []mealplan.CandidateRecipe) {
	data, err := json.Marshal(candidates)
	if err != nil {
		c.logger.Error("Failed to encode candidates", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.metrics.CacheLookup("store_error")
		c.logger.Warn("Candidate cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func cloneCandidates(in []mealplan.CandidateRecipe) []mealplan.CandidateRecipe {
	out := make([]mealplan.CandidateRecipe, len(in))
	for i, cand := range in {
		cand.Ingredients = append([]string(nil), cand.Ingredients...)
		out[i] = cand
	}
	return out
}
