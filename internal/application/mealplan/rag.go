package mealplan

import (
	"context"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"go.uber.org/zap"
)

const ragTemperature = 0.3

// RAGStrategy grounds each meal in recipes retrieved from recipe search.
// Meal types without candidates go through the direct path.
type RAGStrategy struct {
	gen              *generator
	candidates       outbound.CandidateSource
	direct           *DirectStrategy
	maxTokens        int
	promptCandidates int
	tolerance        float64
}

// NewRAGStrategy creates a retrieval-augmented strategy. A nil candidate
// source sends every slot through the direct path.
func NewRAGStrategy(llm outbound.TextGenerator, candidates outbound.CandidateSource, direct *DirectStrategy, cfg StrategyConfig, logger *zap.Logger, metrics *monitoring.MetricsCollector) *RAGStrategy {
	cfg = cfg.withDefaults()
	if direct == nil {
		direct = NewDirectStrategy(llm, cfg, logger, metrics)
	}
	return &RAGStrategy{
		gen:              newGenerator(llm, string(mealplan.ModeRetrievalAugmented), cfg.CallTimeout, logger, metrics),
		candidates:       candidates,
		direct:           direct,
		maxTokens:        cfg.MaxTokens,
		promptCandidates: cfg.PromptCandidates,
		tolerance:        cfg.NutritionTolerance,
	}
}

// Name returns the strategy name
func (s *RAGStrategy) Name() string {
	return string(mealplan.ModeRetrievalAugmented)
}

// GenerateDay returns one meal per requested meal type, in the requested order
func (s *RAGStrategy) GenerateDay(ctx context.Context, day int, mealTypes []mealplan.MealType, c mealplan.GenerationConstraints, state *DiversityState) []mealplan.MealRecord {
	split := s.prepare(ctx, mealTypes, c, state)

	byType := s.generateGrounded(ctx, day, split, c, state)
	for mt, meal := range s.direct.generateSlots(ctx, day, split.direct, c, state) {
		byType[mt] = meal
	}

	meals := make([]mealplan.MealRecord, 0, len(mealTypes))
	for _, mt := range mealTypes {
		meals = append(meals, byType[mt])
	}
	return meals
}

// groundedSplit separates meal types with candidates from those without
type groundedSplit struct {
	picks    map[mealplan.MealType][]mealplan.CandidateRecipe
	grounded []mealplan.MealType
	direct   []mealplan.MealType
}

// prepare retrieves and claims prompt candidates for each meal type
func (s *RAGStrategy) prepare(ctx context.Context, mealTypes []mealplan.MealType, c mealplan.GenerationConstraints, state *DiversityState) groundedSplit {
	split := groundedSplit{picks: make(map[mealplan.MealType][]mealplan.CandidateRecipe)}
	restrictions := c.SortedRestrictions()

	for _, mt := range mealTypes {
		var picks []mealplan.CandidateRecipe
		if s.candidates != nil && ctx.Err() == nil {
			found := s.candidates.GetOrFetch(ctx, mt, restrictions, c.PrepTimeMax)
			picks = state.ClaimCandidates(mt, found, s.promptCandidates)
		}
		if len(picks) == 0 {
			split.direct = append(split.direct, mt)
			continue
		}
		split.picks[mt] = picks
		split.grounded = append(split.grounded, mt)
	}
	return split
}

// generateGrounded makes at most one call for the grounded meal types
func (s *RAGStrategy) generateGrounded(ctx context.Context, day int, split groundedSplit, c mealplan.GenerationConstraints, state *DiversityState) map[mealplan.MealType]mealplan.MealRecord {
	out := make(map[mealplan.MealType]mealplan.MealRecord, len(split.grounded))
	if len(split.grounded) == 0 {
		return out
	}

	var results map[mealplan.MealType]slotResult
	if err := ctx.Err(); err != nil {
		results = errResults(split.grounded, err, false)
	} else {
		items, err := s.gen.completeRecipes(ctx, outbound.TextRequest{
			System:      chefSystemPrompt,
			User:        groundedPrompt(day, split.picks, split.grounded, c, state.UsedRecipeNames(usedNamesInPrompt)),
			JSONMode:    true,
			Temperature: ragTemperature,
			MaxTokens:   s.maxTokens,
		})
		if err != nil {
			s.gen.logger.Warn("Grounded generation failed, converting candidates",
				zap.Int("day", day),
				zap.Bool("timeout", isTimeout(err)),
				zap.Error(err),
			)
			results = errResults(split.grounded, err, true)
		} else {
			results = assignMeals(items, split.grounded)
		}
	}

	for _, mt := range split.grounded {
		res := s.ground(mt, results[mt], split.picks[mt], state)
		out[mt] = s.gen.resolveSlot(mealplan.NewSlot(day, mt), res, c, state)
	}
	return out
}

// ground ties a generated meal to the candidate it was based on. Nutrition
// that strays beyond the tolerance is replaced by the candidate's. Slots
// that end up substituted use the first candidate converted directly.
func (s *RAGStrategy) ground(mt mealplan.MealType, res slotResult, picks []mealplan.CandidateRecipe, state *DiversityState) slotResult {
	if len(picks) == 0 {
		return res
	}
	alt := picks[0].ToMealRecord(mt)
	res.alternate = &alt
	if res.err != nil {
		return res
	}

	chosen := matchCandidate(picks, res.basedOn, res.record.RecipeName)
	if !chosen.Nutrition.IsZero() && !res.record.Nutrition.WithinTolerance(chosen.Nutrition, s.tolerance) {
		s.gen.logger.Debug("Correcting nutrition from candidate",
			zap.String("recipe", res.record.RecipeName),
			zap.String("candidate", chosen.Title),
			zap.Int("generated_calories", res.record.Nutrition.Calories),
			zap.Int("candidate_calories", chosen.Nutrition.Calories),
		)
		res.record.Nutrition = chosen.Nutrition
		res.corrected = true
	}
	res.record.Provenance = mealplan.ProvenanceAIGeneratedFromCandidate
	if res.record.Source == "" || res.record.Source == "AI Generated" {
		res.record.Source = "AI Generated (based on " + chosen.Title + ")"
	}
	state.RecordCandidateUsed(mt, chosen.Title)
	return res
}

// matchCandidate finds the candidate a meal was based on by approximate
// title, defaulting to the first one
func matchCandidate(picks []mealplan.CandidateRecipe, basedOn, recipeName string) mealplan.CandidateRecipe {
	for _, name := range []string{basedOn, recipeName} {
		if name == "" {
			continue
		}
		for _, c := range picks {
			if c.MatchesTitle(name) {
				return c
			}
		}
	}
	return picks[0]
}
