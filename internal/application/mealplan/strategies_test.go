package mealplan

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var breakfastOnly = []mealplan.MealType{mealplan.MealTypeBreakfast}

func TestDirectStrategy_DuplicateNameIsReplaced(t *testing.T) {
	llm := respondingLLM(func(req outbound.TextRequest) (*outbound.TextResponse, error) {
		return jsonReply(map[string]interface{}{
			"recipes": []interface{}{fakeRecipe("breakfast", "Shakshuka")},
		}), nil
	})
	s := NewDirectStrategy(llm, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)
	state := NewDiversityState()
	state.RecordRecipeUsed("  SHAKSHUKA ")

	meals := s.GenerateDay(context.Background(), 2, breakfastOnly, mealplan.GenerationConstraints{}, state)

	require.Len(t, meals, 1)
	assert.Equal(t, "Healthy Breakfast Bowl (Day 2)", meals[0].RecipeName)
}

func TestDirectStrategy_MissingSlotFallsBack(t *testing.T) {
	llm := respondingLLM(func(req outbound.TextRequest) (*outbound.TextResponse, error) {
		return jsonReply(map[string]interface{}{
			"recipes": []interface{}{fakeRecipe("dinner", "Lentil Stew")},
		}), nil
	})
	s := NewDirectStrategy(llm, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)
	mealTypes := []mealplan.MealType{mealplan.MealTypeLunch, mealplan.MealTypeDinner}

	meals := s.GenerateDay(context.Background(), 1, mealTypes, mealplan.GenerationConstraints{}, NewDiversityState())

	require.Len(t, meals, 2)
	assert.Equal(t, "Fresh Salad Bowl (Day 1)", meals[0].RecipeName)
	assert.Equal(t, "Lentil Stew", meals[1].RecipeName)
}

func TestDirectStrategy_PromptCarriesUsedNamesAndHint(t *testing.T) {
	var captured outbound.TextRequest
	llm := &MockTextGenerator{}
	llm.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(outbound.TextRequest) }).
		Return(uniqueRecipes(), nil)

	s := NewDirectStrategy(llm, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)
	state := NewDiversityState()
	state.RecordRecipeUsed("Miso Soup")

	s.GenerateDay(context.Background(), 2, breakfastOnly, mealplan.GenerationConstraints{Exclusions: []string{"mediterranean"}}, state)

	assert.True(t, captured.JSONMode)
	assert.Equal(t, 0.9, captured.Temperature)
	assert.Contains(t, captured.User, "Miso Soup")
	assert.Contains(t, captured.User, "Japanese cuisine")
	assert.Contains(t, captured.User, "Never include: mediterranean")
}

func TestRAGStrategy_CorrectsNutritionFromCandidate(t *testing.T) {
	candidates := candidatesFor(breakfastOnly, 1)
	title := candidates.byType[mealplan.MealTypeBreakfast][0].Title

	llm := respondingLLM(func(req outbound.TextRequest) (*outbound.TextResponse, error) {
		recipe := fakeRecipe("breakfast", "Spiced Chickpea Scramble")
		recipe["based_on"] = title
		recipe["nutritional_info"] = map[string]interface{}{"calories": 900, "protein": 30, "carbs": 50, "fat": 20}
		return jsonReply(map[string]interface{}{"recipes": []interface{}{recipe}}), nil
	})
	s := NewRAGStrategy(llm, candidates, nil, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)
	state := NewDiversityState()

	meals := s.GenerateDay(context.Background(), 1, breakfastOnly, mealplan.GenerationConstraints{}, state)

	require.Len(t, meals, 1)
	assert.Equal(t, "Spiced Chickpea Scramble", meals[0].RecipeName)
	assert.Equal(t, mealplan.Nutrition{Calories: 500, ProteinG: 30, CarbsG: 50, FatG: 20}, meals[0].Nutrition)
	assert.Equal(t, mealplan.ProvenanceAIGeneratedFromCandidate, meals[0].Provenance)
	assert.Equal(t, []string{title}, state.UsedCandidates(mealplan.MealTypeBreakfast))
}

func TestRAGStrategy_KeepsNutritionWithinTolerance(t *testing.T) {
	candidates := candidatesFor(breakfastOnly, 1)
	llm := respondingLLM(func(req outbound.TextRequest) (*outbound.TextResponse, error) {
		recipe := fakeRecipe("breakfast", "Chickpea Hash")
		recipe["nutritional_info"] = map[string]interface{}{"calories": 540, "protein": 28, "carbs": 55, "fat": 18}
		return jsonReply(map[string]interface{}{"recipes": []interface{}{recipe}}), nil
	})
	s := NewRAGStrategy(llm, candidates, nil, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)

	meals := s.GenerateDay(context.Background(), 1, breakfastOnly, mealplan.GenerationConstraints{}, NewDiversityState())

	assert.Equal(t, mealplan.Nutrition{Calories: 540, ProteinG: 28, CarbsG: 55, FatG: 18}, meals[0].Nutrition)
}

func TestRAGStrategy_LLMFailureConvertsCandidate(t *testing.T) {
	candidates := candidatesFor(breakfastOnly, 1)
	cand := candidates.byType[mealplan.MealTypeBreakfast][0]
	s := NewRAGStrategy(failingLLM(), candidates, nil, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)

	meals := s.GenerateDay(context.Background(), 1, breakfastOnly, mealplan.GenerationConstraints{}, NewDiversityState())

	require.Len(t, meals, 1)
	assert.Equal(t, cand.Title, meals[0].RecipeName)
	assert.Equal(t, cand.Nutrition, meals[0].Nutrition)
	assert.Equal(t, mealplan.ProvenanceAIGeneratedFromCandidate, meals[0].Provenance)
	assert.Contains(t, meals[0].Instructions, cand.SourceURL)
}

func TestRAGStrategy_NoCandidatesUsesDirectPath(t *testing.T) {
	candidates := candidatesFor([]mealplan.MealType{mealplan.MealTypeDinner}, 2)
	var prompts []string
	llm := &MockTextGenerator{}
	llm.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { prompts = append(prompts, args.Get(1).(outbound.TextRequest).User) }).
		Return(uniqueRecipes(), nil)

	s := NewRAGStrategy(llm, candidates, nil, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)
	mealTypes := []mealplan.MealType{mealplan.MealTypeBreakfast, mealplan.MealTypeDinner}

	meals := s.GenerateDay(context.Background(), 1, mealTypes, mealplan.GenerationConstraints{}, NewDiversityState())

	require.Len(t, meals, 2)
	assert.Equal(t, mealplan.ProvenanceAIGenerated, meals[0].Provenance)
	assert.Equal(t, mealplan.ProvenanceAIGeneratedFromCandidate, meals[1].Provenance)
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "DINNER options")
	assert.NotContains(t, prompts[1], "options")
}

func TestRAGStrategy_PassesSortedRestrictionsToCache(t *testing.T) {
	source := &recordingSource{}
	s := NewRAGStrategy(failingLLM(), source, nil, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)

	s.GenerateDay(context.Background(), 1, breakfastOnly, mealplan.GenerationConstraints{
		DietaryRestrictions: []string{"vegan", "gluten-free"},
	}, NewDiversityState())

	assert.Equal(t, []string{"gluten-free", "vegan"}, source.restrictions)
}

type recordingSource struct {
	restrictions []string
}

func (r *recordingSource) GetOrFetch(ctx context.Context, mealType mealplan.MealType, restrictions []string, prepTimeMax *int) []mealplan.CandidateRecipe {
	r.restrictions = restrictions
	return nil
}

func TestHybridStrategy_Assignment(t *testing.T) {
	tests := []struct {
		ratio float64
		day   int
		meal  mealplan.MealType
		want  bool
	}{
		{0.7, 1, mealplan.MealTypeBreakfast, true},
		{0.7, 3, mealplan.MealTypeSnack, true},
		{0.2, 1, mealplan.MealTypeLunch, true},
		{0.2, 1, mealplan.MealTypeDinner, false},
		{0.0, 4, mealplan.MealTypeBreakfast, false},
		{1.0, 2, mealplan.MealTypeSnack, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.1f/%d/%s", tt.ratio, tt.day, tt.meal), func(t *testing.T) {
			s := NewHybridStrategy(nil, nil, tt.ratio)
			assert.Equal(t, tt.want, s.UsesRAG(tt.day, tt.meal))
		})
	}

	assert.Equal(t, "hybrid_70rag", NewHybridStrategy(nil, nil, 0.7).Name())
	assert.Equal(t, "hybrid_100rag", NewHybridStrategy(nil, nil, 3).Name())
}

func TestHybridStrategy_AtMostTwoCallsPerDay(t *testing.T) {
	llm := respondingLLM(uniqueRecipes())
	candidates := candidatesFor([]mealplan.MealType{mealplan.MealTypeBreakfast}, 3)
	cfg := DefaultStrategyConfig()
	logger := zaptest.NewLogger(t)
	direct := NewDirectStrategy(llm, cfg, logger, nil)
	rag := NewRAGStrategy(llm, candidates, direct, cfg, logger, nil)
	s := NewHybridStrategy(rag, direct, 0.2)

	mealTypes := []mealplan.MealType{mealplan.MealTypeBreakfast, mealplan.MealTypeLunch, mealplan.MealTypeDinner, mealplan.MealTypeSnack}
	meals := s.GenerateDay(context.Background(), 1, mealTypes, mealplan.GenerationConstraints{}, NewDiversityState())

	require.Len(t, meals, 4)
	for i, meal := range meals {
		assert.Equal(t, mealTypes[i], meal.MealType)
	}
	assert.Equal(t, mealplan.ProvenanceAIGeneratedFromCandidate, meals[0].Provenance)
	assert.Equal(t, mealplan.ProvenanceAIGenerated, meals[1].Provenance)
	llm.AssertNumberOfCalls(t, "Generate", 2)
}

func bulkReply(days int, mealTypes []string, name func(day int, mt string) string) responder {
	return func(req outbound.TextRequest) (*outbound.TextResponse, error) {
		var out []interface{}
		for d := 1; d <= days; d++ {
			var meals []interface{}
			for _, mt := range mealTypes {
				meals = append(meals, fakeRecipe(mt, name(d, mt)))
			}
			out = append(out, map[string]interface{}{"day": d, "meals": meals})
		}
		return jsonReply(map[string]interface{}{"days": out}), nil
	}
}

func TestBulkStrategy_WholePlan(t *testing.T) {
	var captured outbound.TextRequest
	llm := &MockTextGenerator{}
	llm.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(outbound.TextRequest) }).
		Return(bulkReply(2, []string{"breakfast", "dinner"}, func(day int, mt string) string {
			return fmt.Sprintf("%s special %d", mt, day)
		}), nil)

	s := NewBulkStrategy(llm, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)
	c := mealplan.GenerationConstraints{
		DurationDays: 2,
		MealTypes:    []mealplan.MealType{mealplan.MealTypeBreakfast, mealplan.MealTypeDinner},
	}

	days := s.GenerateWholePlan(context.Background(), c, NewDiversityState())

	require.Len(t, days, 2)
	assert.Equal(t, "breakfast special 1", days[0].Meals[0].RecipeName)
	assert.Equal(t, "dinner special 2", days[1].Meals[1].RecipeName)
	assert.Equal(t, 0.7, captured.Temperature)
	assert.Equal(t, 3000, captured.MaxTokens)
	assert.Contains(t, captured.User, tierFull.instruction)
	llm.AssertNumberOfCalls(t, "Generate", 1)
}

func TestBulkStrategy_DuplicatesAcrossDaysAreReplaced(t *testing.T) {
	llm := respondingLLM(bulkReply(3, []string{"lunch"}, func(int, string) string { return "Same Salad" }))
	s := NewBulkStrategy(llm, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)
	c := mealplan.GenerationConstraints{DurationDays: 3, MealTypes: []mealplan.MealType{mealplan.MealTypeLunch}}

	days := s.GenerateWholePlan(context.Background(), c, NewDiversityState())

	require.Len(t, days, 3)
	assert.Equal(t, "Same Salad", days[0].Meals[0].RecipeName)
	assert.Equal(t, "Fresh Salad Bowl (Day 2)", days[1].Meals[0].RecipeName)
	assert.Equal(t, "Fresh Salad Bowl (Day 3)", days[2].Meals[0].RecipeName)
}

func TestBulkStrategy_FailureFillsEverySlot(t *testing.T) {
	llm := &MockTextGenerator{}
	llm.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))
	s := NewBulkStrategy(llm, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)
	c := mealplan.GenerationConstraints{DurationDays: 2, MealTypes: mealplan.DefaultMealTypes}

	days := s.GenerateWholePlan(context.Background(), c, NewDiversityState())

	require.Len(t, days, 2)
	for _, d := range days {
		require.Len(t, d.Meals, 3)
		for _, m := range d.Meals {
			assert.Contains(t, m.RecipeName, fmt.Sprintf("(Day %d)", d.DayIndex))
		}
	}
}

func TestBulkBudgets(t *testing.T) {
	assert.Equal(t, 3000, bulkMaxTokens(15))
	assert.Equal(t, 2000, bulkMaxTokens(16))

	assert.Equal(t, tierFull, detailTierFor(5))
	assert.Equal(t, tierMedium, detailTierFor(6))
	assert.Equal(t, tierMedium, detailTierFor(14))
	assert.Equal(t, tierMinimal, detailTierFor(15))
}

func TestDecodeBulkDays(t *testing.T) {
	payload := []byte(`{"days":[{"day":2,"meals":[{"recipe_name":"b"}]},{"day":2,"meals":[{"recipe_name":"x"}]},{"day":"9","meals":[]}]}`)

	byDay, err := decodeBulkDays(payload, 3)

	require.NoError(t, err)
	assert.Len(t, byDay[2], 1)
	assert.Contains(t, string(byDay[2][0]), `"b"`)
	assert.Empty(t, byDay[1])
	assert.Contains(t, byDay, 3)

	_, err = decodeBulkDays([]byte(`{"days":[]}`), 3)
	assert.ErrorIs(t, err, mealplan.ErrEmptyResponse)
}

func TestSelector(t *testing.T) {
	selector := NewStrategySelector(mealplan.ModeBulk, failingLLM(), nil, DefaultStrategyConfig(), zaptest.NewLogger(t), nil)

	s, err := selector.Select("")
	require.NoError(t, err)
	assert.Equal(t, "bulk", s.Name())
	_, isPlan := s.(PlanStrategy)
	assert.True(t, isPlan)

	s, err = selector.Select(mealplan.ModeRetrievalAugmented)
	require.NoError(t, err)
	_, isDay := s.(DayStrategy)
	assert.True(t, isDay)

	_, err = selector.Select("quantum")
	assert.Error(t, err)
}
