package mealplan

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type OrchestratorTestSuite struct {
	suite.Suite
}

func TestOrchestratorTestSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}

func (suite *OrchestratorTestSuite) assertWellFormed(plan mealplan.MealPlan, days int, mealTypes []mealplan.MealType) {
	t := suite.T()
	require.Len(t, plan.Days, days)
	assert.Equal(t, days, plan.DurationDays)
	assert.NotEqual(t, "", plan.ID.String())

	for i, day := range plan.Days {
		assert.Equal(t, i+1, day.DayIndex)
		assert.Equal(t, fixedStart.AddDate(0, 0, i).Format(mealplan.DateLayout), day.Date)
		require.Len(t, day.Meals, len(mealTypes))
		for j, meal := range day.Meals {
			assert.Equal(t, mealTypes[j], meal.MealType)
			assert.NoError(t, meal.Validate())
			assert.GreaterOrEqual(t, meal.PrepTimeMinutes, mealplan.MinPrepTimeMinutes)
			assert.GreaterOrEqual(t, meal.Nutrition.Calories, 0)
		}
	}
	assert.Equal(t, days*len(mealTypes), plan.Summary.TotalMeals)
}

func (suite *OrchestratorTestSuite) TestSingleDayBreakfastAndLunch() {
	llm := respondingLLM(uniqueRecipes())
	o := newTestOrchestrator(suite.T(), llm, nil, mealplan.ModeDirect)

	plan := o.Generate(context.Background(), mealplan.GenerationConstraints{
		DurationDays: 1,
		MealTypes:    []mealplan.MealType{mealplan.MealTypeLunch, mealplan.MealTypeBreakfast},
	})

	suite.assertWellFormed(plan, 1, []mealplan.MealType{mealplan.MealTypeBreakfast, mealplan.MealTypeLunch})
	assert.Equal(suite.T(), "direct", plan.Strategy)
	assert.Nil(suite.T(), plan.Warning)
	assert.Equal(suite.T(), []string{"standard"}, plan.Summary.DietaryCompliance)
	assert.Equal(suite.T(), 800, plan.Summary.TotalCalories)
	assert.Equal(suite.T(), 20, plan.Summary.AvgPrepTimeMinutes)
	for _, meal := range plan.Meals() {
		assert.Equal(suite.T(), mealplan.ProvenanceAIGenerated, meal.Provenance)
		assert.NotContains(suite.T(), meal.RecipeName, "(Day")
	}
	llm.AssertNumberOfCalls(suite.T(), "Generate", 1)
}

func (suite *OrchestratorTestSuite) TestVegetarianBreakfastAndLunch() {
	llm := respondingLLM(uniqueRecipes())
	o := newTestOrchestrator(suite.T(), llm, nil, mealplan.ModeDirect)

	plan := o.Generate(context.Background(), mealplan.GenerationConstraints{
		DurationDays:        1,
		MealTypes:           []mealplan.MealType{mealplan.MealTypeBreakfast, mealplan.MealTypeLunch},
		DietaryRestrictions: []string{"vegetarian"},
	})

	suite.assertWellFormed(plan, 1, []mealplan.MealType{mealplan.MealTypeBreakfast, mealplan.MealTypeLunch})
	assert.Equal(suite.T(), 2, plan.Summary.TotalMeals)
	assert.Nil(suite.T(), plan.Warning)
	assert.Equal(suite.T(), []string{"vegetarian"}, plan.Summary.DietaryCompliance)
}

func (suite *OrchestratorTestSuite) TestDurationIsClamped() {
	o := newTestOrchestrator(suite.T(), respondingLLM(uniqueRecipes()), nil, mealplan.ModeDirect)

	plan := o.Generate(context.Background(), mealplan.GenerationConstraints{DurationDays: 12})

	suite.assertWellFormed(plan, mealplan.MaxDurationDays, mealplan.DefaultMealTypes)
}

func (suite *OrchestratorTestSuite) TestAlwaysFailingLLM_YieldsCompletePlan() {
	for _, mode := range mealplan.Modes {
		suite.Run(string(mode), func() {
			llm := failingLLM()
			o := newTestOrchestrator(suite.T(), llm, nil, mode)

			plan := o.Generate(context.Background(), mealplan.GenerationConstraints{DurationDays: 3})

			suite.assertWellFormed(plan, 3, mealplan.DefaultMealTypes)
			for _, day := range plan.Days {
				for _, meal := range day.Meals {
					assert.True(suite.T(), strings.HasSuffix(meal.RecipeName, ")"), meal.RecipeName)
					assert.Contains(suite.T(), meal.RecipeName, "(Day ")
				}
			}
			assert.Equal(suite.T(), 9, distinctNames(plan))
		})
	}
}

func (suite *OrchestratorTestSuite) TestVeganPescatarianResolvesToVegan() {
	var mu sync.Mutex
	var prompts []string
	llm := &MockTextGenerator{}
	llm.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()
			prompts = append(prompts, args.Get(1).(outbound.TextRequest).User)
		}).
		Return(uniqueRecipes(), nil)

	o := newTestOrchestrator(suite.T(), llm, nil, mealplan.ModeDirect)
	plan := o.Generate(context.Background(), mealplan.GenerationConstraints{
		DurationDays:        2,
		DietaryRestrictions: []string{"vegan", "pescatarian"},
	})

	suite.assertWellFormed(plan, 2, mealplan.DefaultMealTypes)
	assert.Equal(suite.T(), []string{"vegan"}, plan.Summary.DietaryCompliance)
	require.NotNil(suite.T(), plan.Warning)
	assert.Contains(suite.T(), *plan.Warning, "pescatarian")

	require.NotEmpty(suite.T(), prompts)
	for _, p := range prompts {
		assert.Contains(suite.T(), p, "vegan")
		assert.NotContains(suite.T(), p, "pescatarian")
	}
}

func (suite *OrchestratorTestSuite) TestDirectPlanIsDiverse() {
	o := newTestOrchestrator(suite.T(), respondingLLM(uniqueRecipes()), nil, mealplan.ModeDirect)

	plan := o.Generate(context.Background(), mealplan.GenerationConstraints{DurationDays: 3})

	assert.GreaterOrEqual(suite.T(), distinctNames(plan), 8)
}

func (suite *OrchestratorTestSuite) TestRAGPlanIsDiverse() {
	candidates := candidatesFor(mealplan.DefaultMealTypes, 10)
	o := newTestOrchestrator(suite.T(), respondingLLM(uniqueRecipes()), candidates, mealplan.ModeRetrievalAugmented)

	plan := o.Generate(context.Background(), mealplan.GenerationConstraints{DurationDays: 3})

	suite.assertWellFormed(plan, 3, mealplan.DefaultMealTypes)
	assert.GreaterOrEqual(suite.T(), distinctNames(plan), 8)
	for _, meal := range plan.Meals() {
		assert.Equal(suite.T(), mealplan.ProvenanceAIGeneratedFromCandidate, meal.Provenance)
	}
}

// repeatingRecipes answers every call with the same names, in both the
// per-day and the whole-plan reply shapes
func repeatingRecipes(days int) responder {
	recipes := make([]map[string]interface{}, 0, 3)
	for _, mt := range []string{"breakfast", "lunch", "dinner"} {
		recipes = append(recipes, fakeRecipe(mt, "Same "+mt))
	}
	planDays := make([]map[string]interface{}, 0, days)
	for d := 1; d <= days; d++ {
		planDays = append(planDays, map[string]interface{}{"day": d, "meals": recipes})
	}
	reply := jsonReply(map[string]interface{}{"recipes": recipes, "days": planDays})

	return func(outbound.TextRequest) (*outbound.TextResponse, error) {
		return reply, nil
	}
}

func (suite *OrchestratorTestSuite) TestRepeatedNamesAreNeverReused() {
	for _, mode := range []mealplan.Mode{mealplan.ModeDirect, mealplan.ModeRetrievalAugmented, mealplan.ModeBulk} {
		suite.Run(string(mode), func() {
			candidates := candidatesFor(mealplan.DefaultMealTypes, 10)
			o := newTestOrchestrator(suite.T(), respondingLLM(repeatingRecipes(3)), candidates, mode)

			plan := o.Generate(context.Background(), mealplan.GenerationConstraints{DurationDays: 3})

			suite.assertWellFormed(plan, 3, mealplan.DefaultMealTypes)
			assert.Equal(suite.T(), 9, distinctNames(plan))

			same := 0
			for _, meal := range plan.Meals() {
				if strings.HasPrefix(meal.RecipeName, "Same ") {
					same++
				}
			}
			assert.LessOrEqual(suite.T(), same, 3)
		})
	}
}

func (suite *OrchestratorTestSuite) TestCancelledContext_FillsFallbacksWithoutCalls() {
	llm := respondingLLM(uniqueRecipes())
	o := newTestOrchestrator(suite.T(), llm, nil, mealplan.ModeDirect)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	plan := o.Generate(ctx, mealplan.GenerationConstraints{DurationDays: 2})

	suite.assertWellFormed(plan, 2, mealplan.DefaultMealTypes)
	require.NotNil(suite.T(), plan.Warning)
	assert.Contains(suite.T(), *plan.Warning, InterruptedWarning)
	llm.AssertNotCalled(suite.T(), "Generate", mock.Anything, mock.Anything)
}

func (suite *OrchestratorTestSuite) TestPanicYieldsDefaultPlan() {
	llm := &MockTextGenerator{}
	llm.On("Generate", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("provider exploded") }).
		Return(nil, nil)
	o := newTestOrchestrator(suite.T(), llm, nil, mealplan.ModeDirect)

	plan := o.Generate(context.Background(), mealplan.GenerationConstraints{DurationDays: 5})

	assert.Equal(suite.T(), "default", plan.Strategy)
	assert.Equal(suite.T(), mealplan.DefaultPlanDays, plan.DurationDays)
	require.NotNil(suite.T(), plan.Warning)
	assert.Equal(suite.T(), mealplan.DegradedServiceWarning, *plan.Warning)
}

func (suite *OrchestratorTestSuite) TestUnknownModeYieldsDefaultPlan() {
	o := newTestOrchestrator(suite.T(), failingLLM(), nil, mealplan.ModeDirect)

	plan := o.Generate(context.Background(), mealplan.GenerationConstraints{DurationDays: 2, Mode: "quantum"})

	assert.Equal(suite.T(), "default", plan.Strategy)
}

func (suite *OrchestratorTestSuite) TestRequestModeOverridesDefault() {
	o := newTestOrchestrator(suite.T(), respondingLLM(uniqueRecipes()), nil, mealplan.ModeDirect)

	plan := o.Generate(context.Background(), mealplan.GenerationConstraints{
		DurationDays: 1,
		Mode:         mealplan.ModeHybrid,
	})

	assert.Equal(suite.T(), "hybrid_70rag", plan.Strategy)
	suite.assertWellFormed(plan, 1, mealplan.DefaultMealTypes)
}

func TestCompleteDays_FillsMissingMeals(t *testing.T) {
	c := mealplan.GenerationConstraints{DurationDays: 2, MealTypes: mealplan.DefaultMealTypes}
	state := NewDiversityState()
	days := []mealplan.DayPlan{
		{DayIndex: 2, Meals: []mealplan.MealRecord{mealplan.FallbackMeal(mealplan.MealTypeLunch, nil)}},
	}

	out := completeDays(days, c, state, fixedStart)

	require.Len(t, out, 2)
	require.NoError(t, validateDays(out, c))
	assert.Equal(t, "Healthy Breakfast Bowl (Day 1)", out[0].Meals[0].RecipeName)
	assert.Equal(t, "Fresh Salad Bowl", out[1].Meals[1].RecipeName)
	assert.Equal(t, "2026-03-03", out[1].Date)
}

func TestJoinWarnings(t *testing.T) {
	assert.Nil(t, joinWarnings(nil))
	assert.Nil(t, joinWarnings([]string{" ", ""}))

	joined := joinWarnings([]string{"first.", "", "second."})
	require.NotNil(t, joined)
	assert.Equal(t, "first. second.", *joined)
}
