// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/google/uuid"
)

// ErrCacheMiss is returned by CacheRepository.Get for absent or expired keys
var ErrCacheMiss = errors.New("cache miss")

// ErrPlanNotFound is returned when a stored plan does not exist
var ErrPlanNotFound = errors.New("plan not found")

// CacheRepository defines the interface for byte-level caching with expiry
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PlanRepository defines the interface for meal plan history persistence
// This follows the Repository pattern for data access abstraction
type PlanRepository interface {
	Save(ctx context.Context, record *mealplan.PlanRecord) error
	FindByMealPlanID(ctx context.Context, mealPlanID uuid.UUID) (*mealplan.PlanRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*mealplan.PlanRecord, error)
}
