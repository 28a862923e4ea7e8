// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
)

// MealPlanService defines the use cases for meal plan generation
// This is the primary port that HTTP handlers and the CLI use
type MealPlanService interface {
	// GenerateFromQuery parses a natural-language request and generates a plan.
	// Only input validation errors are returned; generation itself always
	// yields a plan.
	GenerateFromQuery(ctx context.Context, req QueryRequest) (*mealplan.MealPlan, error)

	// Generate builds a plan from already structured constraints
	Generate(ctx context.Context, constraints mealplan.GenerationConstraints) *mealplan.MealPlan

	// History lists a user's previously generated plans, newest first
	History(ctx context.Context, userID string, limit int) ([]*mealplan.PlanRecord, error)
}

// QueryRequest is a natural-language plan request
type QueryRequest struct {
	Query  string
	UserID string
	Mode   string
}
