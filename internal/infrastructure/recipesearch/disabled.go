package recipesearch

import (
	"context"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
)

// Disabled is the retriever used when no recipe search credentials are
// configured. Retrieval-backed strategies then behave like direct generation.
type Disabled struct{}

var _ outbound.CandidateRetriever = Disabled{}

// Fetch always returns an empty slice
func (Disabled) Fetch(ctx context.Context, mealType mealplan.MealType, restrictions []string, prepTimeMax *int) []mealplan.CandidateRecipe {
	return []mealplan.CandidateRecipe{}
}
