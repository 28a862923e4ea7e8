package mealplan

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"
)

type responder func(req outbound.TextRequest) (*outbound.TextResponse, error)

// MockTextGenerator is a mock language model. A responder passed to Return
// computes the reply from the request.
type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Name() string { return "mock" }

func (m *MockTextGenerator) Generate(ctx context.Context, req outbound.TextRequest) (*outbound.TextResponse, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(responder); ok {
		return fn(req)
	}
	resp, _ := args.Get(0).(*outbound.TextResponse)
	return resp, args.Error(1)
}

func failingLLM() *MockTextGenerator {
	llm := &MockTextGenerator{}
	llm.On("Generate", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)
	return llm
}

func respondingLLM(fn responder) *MockTextGenerator {
	llm := &MockTextGenerator{}
	llm.On("Generate", mock.Anything, mock.Anything).Return(fn, nil)
	return llm
}

func jsonReply(v interface{}) *outbound.TextResponse {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return &outbound.TextResponse{Content: string(body), Provider: "mock"}
}

// uniqueRecipes answers every call with one uniquely named recipe per meal type
func uniqueRecipes() responder {
	faker := gofakeit.New(42)
	var mu sync.Mutex
	n := 0

	return func(req outbound.TextRequest) (*outbound.TextResponse, error) {
		mu.Lock()
		defer mu.Unlock()

		recipes := make([]map[string]interface{}, 0, 4)
		for _, mt := range []string{"breakfast", "lunch", "dinner", "snack"} {
			n++
			recipes = append(recipes, fakeRecipe(mt, fmt.Sprintf("%s %d", faker.Dinner(), n)))
		}
		return jsonReply(map[string]interface{}{"recipes": recipes}), nil
	}
}

func fakeRecipe(mealType, name string) map[string]interface{} {
	return map[string]interface{}{
		"meal_type":   mealType,
		"recipe_name": name,
		"description": "Test recipe",
		"ingredients": []string{"1 cup rice", "2 carrots"},
		"nutritional_info": map[string]interface{}{
			"calories": 400, "protein": 20, "carbs": 40, "fat": 15,
		},
		"preparation_time": "20 mins",
		"instructions":     []string{"Cook.", "Serve."},
	}
}

// staticCandidates is a candidate source with fixed results per meal type
type staticCandidates struct {
	byType map[mealplan.MealType][]mealplan.CandidateRecipe
	calls  atomic.Int32
}

func (s *staticCandidates) GetOrFetch(ctx context.Context, mealType mealplan.MealType, restrictions []string, prepTimeMax *int) []mealplan.CandidateRecipe {
	s.calls.Add(1)
	return s.byType[mealType]
}

func candidatesFor(mealTypes []mealplan.MealType, n int) *staticCandidates {
	src := &staticCandidates{byType: make(map[mealplan.MealType][]mealplan.CandidateRecipe)}
	for _, mt := range mealTypes {
		for i := 1; i <= n; i++ {
			src.byType[mt] = append(src.byType[mt], mealplan.CandidateRecipe{
				Title:           fmt.Sprintf("%s candidate %d", mt, i),
				Ingredients:     []string{"Chickpeas", "Spinach"},
				Nutrition:       mealplan.Nutrition{Calories: 500, ProteinG: 30, CarbsG: 50, FatG: 20},
				PrepTimeMinutes: 25,
				SourceURL:       fmt.Sprintf("https://example.com/%s/%d", mt, i),
				Source:          "Test Kitchen",
			})
		}
	}
	return src
}

var fixedStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T, llm outbound.TextGenerator, candidates outbound.CandidateSource, mode mealplan.Mode) *Orchestrator {
	logger := zaptest.NewLogger(t)
	selector := NewStrategySelector(mode, llm, candidates, DefaultStrategyConfig(), logger, nil)
	o := NewOrchestrator(selector, OrchestratorConfig{}, logger, nil)
	o.now = func() time.Time { return fixedStart }
	o.newState = func() *DiversityState { return NewDiversityStateWithSeed(7) }
	return o
}

func distinctNames(plan mealplan.MealPlan) int {
	seen := make(map[string]bool)
	for _, m := range plan.Meals() {
		seen[mealplan.NormalizedName(m.RecipeName)] = true
	}
	return len(seen)
}
