package mealplan

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar format used for DayPlan dates
const DateLayout = "2006-01-02"

// DayPlan holds the meals of a single day in canonical order
type DayPlan struct {
	DayIndex int          `json:"day"`
	Date     string       `json:"date"`
	Meals    []MealRecord `json:"meals"`
}

// NewDayPlan builds a DayPlan whose date is derived from the plan start date
func NewDayPlan(start time.Time, dayIndex int, meals []MealRecord) DayPlan {
	return DayPlan{
		DayIndex: dayIndex,
		Date:     start.AddDate(0, 0, dayIndex-1).Format(DateLayout),
		Meals:    meals,
	}
}

// Summary holds derived plan statistics
type Summary struct {
	TotalMeals         int      `json:"total_meals"`
	DietaryCompliance  []string `json:"dietary_compliance"`
	EstimatedCost      string   `json:"estimated_cost"`
	AvgPrepTimeMinutes int      `json:"avg_prep_time_minutes"`
	TotalCalories      int      `json:"total_calories"`
}

// MealPlan is the complete multi-day result returned to callers
type MealPlan struct {
	ID           uuid.UUID `json:"meal_plan_id"`
	DurationDays int       `json:"duration_days"`
	GeneratedAt  time.Time `json:"generated_at"`
	Strategy     string    `json:"strategy"`
	Days         []DayPlan `json:"meal_plan"`
	Summary      Summary   `json:"summary"`
	Warning      *string   `json:"warning"`
}

// HasWarning reports whether the plan carries a warning
func (p MealPlan) HasWarning() bool {
	return p.Warning != nil && *p.Warning != ""
}

// Meals returns every meal of the plan in day then slot order
func (p MealPlan) Meals() []MealRecord {
	var out []MealRecord
	for _, day := range p.Days {
		out = append(out, day.Meals...)
	}
	return out
}

// PlanRecord is a stored entry of a user's plan history
type PlanRecord struct {
	ID                  uuid.UUID `json:"id"`
	UserID              string    `json:"user_id"`
	Query               string    `json:"query"`
	DietaryRestrictions []string  `json:"dietary_restrictions"`
	Preferences         []string  `json:"preferences"`
	SpecialRequirements []string  `json:"special_requirements"`
	MealPlanID          uuid.UUID `json:"meal_plan_id"`
	Strategy            string    `json:"strategy"`
	Plan                MealPlan  `json:"plan"`
	CreatedAt           time.Time `json:"created_at"`
}
