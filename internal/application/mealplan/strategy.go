package mealplan

import (
	"context"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
)

// Strategy is a named way of producing meals
type Strategy interface {
	Name() string
}

// DayStrategy generates one day at a time; the orchestrator runs days concurrently
type DayStrategy interface {
	Strategy
	GenerateDay(ctx context.Context, day int, mealTypes []mealplan.MealType, c mealplan.GenerationConstraints, state *DiversityState) []mealplan.MealRecord
}

// PlanStrategy generates every day of the plan in one pass
type PlanStrategy interface {
	Strategy
	GenerateWholePlan(ctx context.Context, c mealplan.GenerationConstraints, state *DiversityState) []mealplan.DayPlan
}

// StrategyConfig tunes the strategies
type StrategyConfig struct {
	CallTimeout        time.Duration
	MaxTokens          int
	Temperature        float64
	HybridRAGRatio     float64
	PromptCandidates   int
	NutritionTolerance float64
}

// DefaultStrategyConfig returns the standard tuning
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		CallTimeout:        DefaultCallTimeout,
		MaxTokens:          3000,
		Temperature:        0.9,
		HybridRAGRatio:     0.7,
		PromptCandidates:   3,
		NutritionTolerance: 0.2,
	}
}

func (c StrategyConfig) withDefaults() StrategyConfig {
	d := DefaultStrategyConfig()
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = d.Temperature
	}
	if c.HybridRAGRatio < 0 || c.HybridRAGRatio > 1 {
		c.HybridRAGRatio = d.HybridRAGRatio
	}
	if c.PromptCandidates <= 0 {
		c.PromptCandidates = d.PromptCandidates
	}
	if c.NutritionTolerance <= 0 {
		c.NutritionTolerance = d.NutritionTolerance
	}
	return c
}
