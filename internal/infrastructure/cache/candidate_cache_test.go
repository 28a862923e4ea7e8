package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type retrieverSpy struct {
	calls  atomic.Int32
	delay  time.Duration
	result []mealplan.CandidateRecipe
}

func (r *retrieverSpy) Fetch(ctx context.Context, mealType mealplan.MealType, restrictions []string, prepTimeMax *int) []mealplan.CandidateRecipe {
	r.calls.Add(1)
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.result
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingStore) Delete(ctx context.Context, key string) error { return nil }

func newCache(t *testing.T, spy *retrieverSpy) *CandidateCache {
	store := memory.NewCacheRepository()
	t.Cleanup(func() { _ = store.Close() })
	return NewCandidateCache(store, spy, CandidateCacheConfig{TTL: time.Minute}, zaptest.NewLogger(t), nil)
}

func sampleCandidates() []mealplan.CandidateRecipe {
	return []mealplan.CandidateRecipe{
		{Title: "Tofu Scramble", Ingredients: []string{"tofu", "turmeric"}, Nutrition: mealplan.Nutrition{Calories: 320}, PrepTimeMinutes: 15},
		{Title: "Overnight Oats", Ingredients: []string{"oats", "oat milk"}, Nutrition: mealplan.Nutrition{Calories: 380}, PrepTimeMinutes: 10},
	}
}

func TestCandidateKey(t *testing.T) {
	prep := 30
	assert.Equal(t, "breakfast|vegan,gluten-free|30", CandidateKey(mealplan.MealTypeBreakfast, []string{"vegan", "gluten-free"}, &prep))
	assert.Equal(t, "dinner||none", CandidateKey(mealplan.MealTypeDinner, nil, nil))
	assert.NotEqual(t,
		CandidateKey(mealplan.MealTypeLunch, []string{"a", "b"}, nil),
		CandidateKey(mealplan.MealTypeLunch, []string{"b", "a"}, nil),
	)
}

func TestGetOrFetch_Idempotent(t *testing.T) {
	spy := &retrieverSpy{result: sampleCandidates()}
	c := newCache(t, spy)
	ctx := context.Background()

	first := c.GetOrFetch(ctx, mealplan.MealTypeBreakfast, []string{"vegan"}, nil)
	second := c.GetOrFetch(ctx, mealplan.MealTypeBreakfast, []string{"vegan"}, nil)

	assert.Equal(t, int32(1), spy.calls.Load())
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestNewCandidateCache_NilLogger(t *testing.T) {
	spy := &retrieverSpy{result: sampleCandidates()}
	store := memory.NewCacheRepository()
	t.Cleanup(func() { _ = store.Close() })

	var c *CandidateCache
	assert.NotPanics(t, func() { c = NewCandidateCache(store, spy, CandidateCacheConfig{}, nil, nil) })
	require.NotNil(t, c)
	assert.Len(t, c.GetOrFetch(context.Background(), mealplan.MealTypeLunch, nil, nil), 2)
}

func TestGetOrFetch_DistinctKeysFetchSeparately(t *testing.T) {
	spy := &retrieverSpy{result: sampleCandidates()}
	c := newCache(t, spy)
	ctx := context.Background()

	c.GetOrFetch(ctx, mealplan.MealTypeBreakfast, []string{"vegan"}, nil)
	c.GetOrFetch(ctx, mealplan.MealTypeLunch, []string{"vegan"}, nil)

	assert.Equal(t, int32(2), spy.calls.Load())
}

func TestGetOrFetch_EmptyResultIsCached(t *testing.T) {
	spy := &retrieverSpy{}
	c := newCache(t, spy)
	ctx := context.Background()

	first := c.GetOrFetch(ctx, mealplan.MealTypeSnack, nil, nil)
	second := c.GetOrFetch(ctx, mealplan.MealTypeSnack, nil, nil)

	assert.Empty(t, first)
	assert.Empty(t, second)
	assert.Equal(t, int32(1), spy.calls.Load())
}

func TestGetOrFetch_ConcurrentMissesShareOneFetch(t *testing.T) {
	spy := &retrieverSpy{result: sampleCandidates(), delay: 50 * time.Millisecond}
	c := newCache(t, spy)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]mealplan.CandidateRecipe, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.GetOrFetch(ctx, mealplan.MealTypeDinner, []string{"vegetarian"}, nil)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), spy.calls.Load())
	for _, r := range results {
		assert.Len(t, r, 2)
	}
}

func TestGetOrFetch_ReturnsIndependentCopies(t *testing.T) {
	spy := &retrieverSpy{result: sampleCandidates()}
	c := newCache(t, spy)
	ctx := context.Background()

	first := c.GetOrFetch(ctx, mealplan.MealTypeBreakfast, nil, nil)
	first[0].Ingredients[0] = "mutated"

	second := c.GetOrFetch(ctx, mealplan.MealTypeBreakfast, nil, nil)
	assert.Equal(t, "tofu", second[0].Ingredients[0])
}

func TestGetOrFetch_StoreFailureDegradesToFetch(t *testing.T) {
	spy := &retrieverSpy{result: sampleCandidates()}
	c := NewCandidateCache(failingStore{}, spy, CandidateCacheConfig{}, zaptest.NewLogger(t), nil)
	ctx := context.Background()

	got := c.GetOrFetch(ctx, mealplan.MealTypeLunch, nil, nil)
	require.Len(t, got, 2)

	c.GetOrFetch(ctx, mealplan.MealTypeLunch, nil, nil)
	assert.Equal(t, int32(2), spy.calls.Load())
}

func TestGetOrFetch_CancelledFetchNotStored(t *testing.T) {
	spy := &retrieverSpy{}
	c := newCache(t, spy)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.GetOrFetch(ctx, mealplan.MealTypeLunch, nil, nil)

	spy.result = sampleCandidates()
	got := c.GetOrFetch(context.Background(), mealplan.MealTypeLunch, nil, nil)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), spy.calls.Load())
}

func TestInvalidate(t *testing.T) {
	spy := &retrieverSpy{result: sampleCandidates()}
	c := newCache(t, spy)
	ctx := context.Background()

	c.GetOrFetch(ctx, mealplan.MealTypeBreakfast, nil, nil)
	require.NoError(t, c.Invalidate(ctx, mealplan.MealTypeBreakfast, nil, nil))
	c.GetOrFetch(ctx, mealplan.MealTypeBreakfast, nil, nil)

	assert.Equal(t, int32(2), spy.calls.Load())
}
