package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"github.com/google/uuid"
)

// PlanRepository keeps plan history in process memory
type PlanRepository struct {
	mu      sync.RWMutex
	records []*mealplan.PlanRecord
}

var _ outbound.PlanRepository = (*PlanRepository)(nil)

// NewPlanRepository creates an empty in-memory plan repository
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{}
}

// Save appends a record
func (r *PlanRepository) Save(ctx context.Context, record *mealplan.PlanRecord) error {
	if record == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *record
	r.records = append(r.records, &stored)
	return nil
}

// FindByMealPlanID returns the record for a generated plan
func (r *PlanRepository) FindByMealPlanID(ctx context.Context, mealPlanID uuid.UUID) (*mealplan.PlanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.MealPlanID == mealPlanID {
			found := *rec
			return &found, nil
		}
	}
	return nil, outbound.ErrPlanNotFound
}

// ListByUser returns a user's records, newest first
func (r *PlanRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*mealplan.PlanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*mealplan.PlanRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			cp := *rec
			out = append(out, &cp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
