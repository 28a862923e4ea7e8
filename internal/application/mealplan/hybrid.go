package mealplan

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
)

// HybridStrategy splits each day between the retrieval-augmented and direct
// paths. It makes at most two model calls per day.
type HybridStrategy struct {
	rag    *RAGStrategy
	direct *DirectStrategy
	ratio  float64
}

// NewHybridStrategy creates a hybrid strategy. The ratio is clamped to [0, 1].
func NewHybridStrategy(rag *RAGStrategy, direct *DirectStrategy, ratio float64) *HybridStrategy {
	return &HybridStrategy{
		rag:    rag,
		direct: direct,
		ratio:  math.Max(0, math.Min(1, ratio)),
	}
}

// Name includes the share of retrieval-augmented meals, e.g. hybrid_70rag
func (s *HybridStrategy) Name() string {
	return fmt.Sprintf("hybrid_%drag", int(math.Round(s.ratio*100)))
}

// UsesRAG reports whether the slot goes through the retrieval-augmented path
func (s *HybridStrategy) UsesRAG(day int, mealType mealplan.MealType) bool {
	combined := (day*10 + mealType.Index()) % 10
	return float64(combined) < s.ratio*10
}

// GenerateDay returns one meal per requested meal type, in the requested order
func (s *HybridStrategy) GenerateDay(ctx context.Context, day int, mealTypes []mealplan.MealType, c mealplan.GenerationConstraints, state *DiversityState) []mealplan.MealRecord {
	var ragTypes, directTypes []mealplan.MealType
	for _, mt := range mealTypes {
		if s.UsesRAG(day, mt) {
			ragTypes = append(ragTypes, mt)
		} else {
			directTypes = append(directTypes, mt)
		}
	}

	split := s.rag.prepare(ctx, ragTypes, c, state)
	directTypes = append(directTypes, split.direct...)
	sort.SliceStable(directTypes, func(i, j int) bool {
		return directTypes[i].Index() < directTypes[j].Index()
	})

	byType := s.rag.generateGrounded(ctx, day, split, c, state)
	for mt, meal := range s.direct.generateSlots(ctx, day, directTypes, c, state) {
		byType[mt] = meal
	}

	meals := make([]mealplan.MealRecord, 0, len(mealTypes))
	for _, mt := range mealTypes {
		meals = append(meals, byType[mt])
	}
	return meals
}
