package mealplan

import (
	"context"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"go.uber.org/zap"
)

// DirectStrategy asks the model for every meal of a day in one call
type DirectStrategy struct {
	gen         *generator
	maxTokens   int
	temperature float64
}

// NewDirectStrategy creates a direct strategy
func NewDirectStrategy(llm outbound.TextGenerator, cfg StrategyConfig, logger *zap.Logger, metrics *monitoring.MetricsCollector) *DirectStrategy {
	cfg = cfg.withDefaults()
	return &DirectStrategy{
		gen:         newGenerator(llm, string(mealplan.ModeDirect), cfg.CallTimeout, logger, metrics),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Name returns the strategy name
func (s *DirectStrategy) Name() string {
	return string(mealplan.ModeDirect)
}

// GenerateDay returns one meal per requested meal type, in the requested order
func (s *DirectStrategy) GenerateDay(ctx context.Context, day int, mealTypes []mealplan.MealType, c mealplan.GenerationConstraints, state *DiversityState) []mealplan.MealRecord {
	byType := s.generateSlots(ctx, day, mealTypes, c, state)
	meals := make([]mealplan.MealRecord, 0, len(mealTypes))
	for _, mt := range mealTypes {
		meals = append(meals, byType[mt])
	}
	return meals
}

// generateSlots makes at most one call for the given meal types
func (s *DirectStrategy) generateSlots(ctx context.Context, day int, mealTypes []mealplan.MealType, c mealplan.GenerationConstraints, state *DiversityState) map[mealplan.MealType]mealplan.MealRecord {
	out := make(map[mealplan.MealType]mealplan.MealRecord, len(mealTypes))
	if len(mealTypes) == 0 {
		return out
	}

	var results map[mealplan.MealType]slotResult
	if err := ctx.Err(); err != nil {
		results = errResults(mealTypes, err, false)
	} else {
		items, err := s.gen.completeRecipes(ctx, outbound.TextRequest{
			System:      chefSystemPrompt,
			User:        directPrompt(day, mealTypes, c, state.UsedRecipeNames(usedNamesInPrompt)),
			JSONMode:    true,
			Temperature: s.temperature,
			MaxTokens:   s.maxTokens,
		})
		if err != nil {
			s.gen.logger.Warn("Day generation failed, using fallbacks",
				zap.Int("day", day),
				zap.Bool("timeout", isTimeout(err)),
				zap.Error(err),
			)
			results = errResults(mealTypes, err, true)
		} else {
			results = assignMeals(items, mealTypes)
		}
	}

	for _, mt := range mealTypes {
		out[mt] = s.gen.resolveSlot(mealplan.NewSlot(day, mt), results[mt], c, state)
	}
	return out
}
