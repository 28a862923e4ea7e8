package outbound

import (
	"context"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
)

// TextRequest is a single structured-output request to a language model
type TextRequest struct {
	System      string
	User        string
	JSONMode    bool
	Temperature float64
	MaxTokens   int
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// TextResponse is the raw model output
type TextResponse struct {
	Content      string
	Provider     string
	Model        string
	FinishReason string
	Usage        TokenUsage
}

// TextGenerator is the LLM text-generation boundary. Implementations return
// an error for transport, authentication and timeout failures; callers decide
// how to degrade.
type TextGenerator interface {
	Generate(ctx context.Context, req TextRequest) (*TextResponse, error)
	Name() string
}

// CandidateRetriever is the recipe-search boundary. Implementations never
// fail: transport and authentication problems yield an empty slice.
type CandidateRetriever interface {
	Fetch(ctx context.Context, mealType mealplan.MealType, restrictions []string, prepTimeMax *int) []mealplan.CandidateRecipe
}

// CandidateSource is what strategies consult for grounded candidates
type CandidateSource interface {
	GetOrFetch(ctx context.Context, mealType mealplan.MealType, restrictions []string, prepTimeMax *int) []mealplan.CandidateRecipe
}
