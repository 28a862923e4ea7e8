package mealplan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"go.uber.org/zap"
)

const (
	bulkTemperature     = 0.7
	bulkLargePlanMeals  = 15
	bulkLargePlanTokens = 2000
	bulkTokens          = 3000
)

// BulkStrategy asks for the whole plan in a single model call
type BulkStrategy struct {
	gen *generator
}

// NewBulkStrategy creates a bulk strategy
func NewBulkStrategy(llm outbound.TextGenerator, cfg StrategyConfig, logger *zap.Logger, metrics *monitoring.MetricsCollector) *BulkStrategy {
	cfg = cfg.withDefaults()
	return &BulkStrategy{
		gen: newGenerator(llm, string(mealplan.ModeBulk), cfg.CallTimeout, logger, metrics),
	}
}

// Name returns the strategy name
func (s *BulkStrategy) Name() string {
	return string(mealplan.ModeBulk)
}

// GenerateWholePlan returns every day of the plan. Dates are left to the caller.
func (s *BulkStrategy) GenerateWholePlan(ctx context.Context, c mealplan.GenerationConstraints, state *DiversityState) []mealplan.DayPlan {
	var (
		byDay   map[int][]json.RawMessage
		callErr error
		called  bool
	)

	if err := ctx.Err(); err != nil {
		callErr = err
	} else {
		called = true
		payload, err := s.gen.complete(ctx, outbound.TextRequest{
			System:      chefSystemPrompt,
			User:        bulkPrompt(c),
			JSONMode:    true,
			Temperature: bulkTemperature,
			MaxTokens:   bulkMaxTokens(c.TotalMeals()),
		})
		if err == nil {
			byDay, err = decodeBulkDays(payload, c.DurationDays)
		}
		callErr = err
	}

	if callErr != nil {
		s.gen.logger.Warn("Plan generation failed, using fallbacks",
			zap.Int("days", c.DurationDays),
			zap.Bool("timeout", isTimeout(callErr)),
			zap.Error(callErr),
		)
	}

	days := make([]mealplan.DayPlan, 0, c.DurationDays)
	for day := 1; day <= c.DurationDays; day++ {
		var results map[mealplan.MealType]slotResult
		if callErr != nil {
			results = errResults(c.MealTypes, callErr, called)
		} else {
			results = assignMeals(byDay[day], c.MealTypes)
		}

		meals := make([]mealplan.MealRecord, 0, len(c.MealTypes))
		for _, mt := range c.MealTypes {
			meals = append(meals, s.gen.resolveSlot(mealplan.NewSlot(day, mt), results[mt], c, state))
		}
		days = append(days, mealplan.DayPlan{DayIndex: day, Meals: meals})
	}
	return days
}

func bulkMaxTokens(totalMeals int) int {
	if totalMeals > bulkLargePlanMeals {
		return bulkLargePlanTokens
	}
	return bulkTokens
}

// decodeBulkDays maps the reply's days onto day indexes. A day number that is
// missing, out of range or repeated falls back to the entry's position.
func decodeBulkDays(payload json.RawMessage, durationDays int) (map[int][]json.RawMessage, error) {
	var body struct {
		Days []struct {
			Day   flexNumber        `json:"day"`
			Meals []json.RawMessage `json:"meals"`
		} `json:"days"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode days: %w", err)
	}
	if len(body.Days) == 0 {
		return nil, mealplan.ErrEmptyResponse
	}

	out := make(map[int][]json.RawMessage, durationDays)
	for i, d := range body.Days {
		day := int(d.Day.value)
		if !d.Day.set || day < 1 || day > durationDays {
			day = i + 1
		}
		if _, taken := out[day]; taken {
			day = i + 1
		}
		if day > durationDays {
			continue
		}
		if _, taken := out[day]; taken {
			continue
		}
		out[day] = d.Meals
	}
	return out, nil
}
