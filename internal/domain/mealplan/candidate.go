package mealplan

import (
	"fmt"
	"strings"
)

// CandidateRecipe is a real-world recipe returned by the recipe search service.
// Candidates are shared read-only between strategies once cached.
type CandidateRecipe struct {
	Title           string    `json:"title"`
	Ingredients     []string  `json:"ingredients"`
	Nutrition       Nutrition `json:"nutrition"`
	PrepTimeMinutes int       `json:"prep_time_minutes"`
	SourceURL       string    `json:"source_url"`
	Source          string    `json:"source,omitempty"`
}

// ToMealRecord converts the candidate into a meal without any model refinement
func (c CandidateRecipe) ToMealRecord(mealType MealType) MealRecord {
	ingredients := make([]string, 0, len(c.Ingredients))
	for _, ing := range c.Ingredients {
		ingredients = append(ingredients, "1 "+ing)
	}
	instructions := "Prepare the ingredients and cook according to the original recipe."
	if c.SourceURL != "" {
		instructions = fmt.Sprintf("See full recipe at: %s", c.SourceURL)
	}
	source := "Edamam"
	if c.Source != "" {
		source = "Edamam: " + c.Source
	}
	return MealRecord{
		RecipeName:      c.Title,
		Description:     fmt.Sprintf("A %s recipe from %s", mealType, c.sourceName()),
		Ingredients:     ingredients,
		Nutrition:       c.Nutrition,
		PrepTimeMinutes: c.PrepTimeMinutes,
		Instructions:    instructions,
		Provenance:      ProvenanceAIGeneratedFromCandidate,
		Source:          source,
	}.Normalize(mealType)
}

// MatchesTitle reports whether a model-restated name refers to this candidate.
// Matching is case-insensitive and accepts either string containing the other.
func (c CandidateRecipe) MatchesTitle(name string) bool {
	title := NormalizedName(c.Title)
	n := NormalizedName(name)
	if title == "" || n == "" {
		return false
	}
	return title == n || strings.Contains(n, title) || strings.Contains(title, n)
}

func (c CandidateRecipe) sourceName() string {
	if c.Source != "" {
		return c.Source
	}
	return "Edamam"
}
