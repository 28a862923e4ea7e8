package mealplan

import (
	"fmt"
	"strings"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
)

// usedNamesInPrompt caps how many earlier recipe names a prompt lists
const usedNamesInPrompt = 30

var cuisineRotation = []string{
	"Mediterranean", "Mexican", "Japanese", "Indian", "Thai", "Italian",
	"Middle Eastern", "Korean", "Greek", "Vietnamese", "French", "Ethiopian",
}

var cookingStyles = []string{
	"grilled", "one-pot", "roasted", "stir-fried",
	"slow-cooked", "fresh and raw", "baked", "steamed",
}

const chefSystemPrompt = "You are a professional chef and nutritionist who creates diverse, realistic recipes. " +
	"Always follow dietary restrictions strictly. Respond with valid JSON only."

const recipeFields = `"meal_type": "breakfast|lunch|dinner|snack",
      "recipe_name": "Unique descriptive name",
      "description": "One or two sentences",
      "ingredients": ["1 cup ingredient", "..."],
      "nutritional_info": {"calories": 450, "protein": 20, "carbs": 40, "fat": 15},
      "preparation_time": "25 mins",
      "instructions": "1. Step one. 2. Step two.",
      "source": "AI Generated"`

// varietyHint picks a deterministic theme for the day. A cuisine preference
// yields a cooking style within it; otherwise cuisines rotate, skipping any
// that are excluded.
func varietyHint(day int, c mealplan.GenerationConstraints) string {
	idx := day - 1
	if idx < 0 {
		idx = 0
	}

	if cuisine, ok := preferredCuisine(c.Preferences); ok {
		return fmt.Sprintf("%s dishes with a %s approach", cuisine, cookingStyles[idx%len(cookingStyles)])
	}

	allowed := make([]string, 0, len(cuisineRotation))
	for _, cuisine := range cuisineRotation {
		if !isExcluded(cuisine, c.Exclusions) {
			allowed = append(allowed, cuisine)
		}
	}
	if len(allowed) == 0 {
		return ""
	}
	return allowed[idx%len(allowed)] + " cuisine"
}

func preferredCuisine(preferences []string) (string, bool) {
	for _, p := range preferences {
		p = strings.TrimSuffix(mealplan.NormalizedName(p), " cuisine")
		for _, cuisine := range cuisineRotation {
			if strings.ToLower(cuisine) == p {
				return cuisine, true
			}
		}
	}
	return "", false
}

func isExcluded(cuisine string, exclusions []string) bool {
	name := strings.ToLower(cuisine)
	for _, e := range exclusions {
		e = mealplan.NormalizedName(e)
		if e != "" && (strings.Contains(e, name) || strings.Contains(name, e)) {
			return true
		}
	}
	return false
}

// writeConstraints appends the shared constraint block of every prompt
func writeConstraints(b *strings.Builder, c mealplan.GenerationConstraints) {
	if len(c.DietaryRestrictions) > 0 {
		fmt.Fprintf(b, "Dietary restrictions (must follow strictly): %s\n", strings.Join(c.DietaryRestrictions, ", "))
	}
	if len(c.Preferences) > 0 {
		fmt.Fprintf(b, "Preferences: %s\n", strings.Join(c.Preferences, ", "))
	}
	if len(c.SpecialRequirements) > 0 {
		fmt.Fprintf(b, "Special requirements: %s\n", strings.Join(c.SpecialRequirements, ", "))
	}
	if len(c.Exclusions) > 0 {
		fmt.Fprintf(b, "Never include: %s\n", strings.Join(c.Exclusions, ", "))
	}
	if c.PrepTimeMax != nil {
		fmt.Fprintf(b, "Maximum preparation time: %d minutes\n", *c.PrepTimeMax)
	}
}

func writeUsedNames(b *strings.Builder, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(b, "Do NOT repeat any of these recipes already in the plan: %s\n", strings.Join(names, "; "))
}

func joinMealTypes(mealTypes []mealplan.MealType) string {
	parts := make([]string, len(mealTypes))
	for i, mt := range mealTypes {
		parts[i] = mt.String()
	}
	return strings.Join(parts, ", ")
}

// directPrompt asks for one recipe per meal type of a single day
func directPrompt(day int, mealTypes []mealplan.MealType, c mealplan.GenerationConstraints, usedNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create %d unique recipes for day %d of a meal plan, one for each meal type: %s.\n",
		len(mealTypes), day, joinMealTypes(mealTypes))
	writeConstraints(&b, c)
	if hint := varietyHint(day, c); hint != "" {
		fmt.Fprintf(&b, "Variety focus for today: %s\n", hint)
	}
	writeUsedNames(&b, usedNames)
	b.WriteString("Preparation time must be at least 10 minutes.\n")
	b.WriteString("Return JSON of the form:\n{\n  \"recipes\": [\n    {\n      ")
	b.WriteString(recipeFields)
	b.WriteString("\n    }\n  ]\n}\n")
	return b.String()
}

// groundedPrompt asks for recipes adapted from retrieved candidates
func groundedPrompt(day int, picks map[mealplan.MealType][]mealplan.CandidateRecipe, mealTypes []mealplan.MealType, c mealplan.GenerationConstraints, usedNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create recipes for day %d of a meal plan for these meal types: %s.\n", day, joinMealTypes(mealTypes))
	b.WriteString("Base each recipe on one of the real recipes listed for its meal type. ")
	b.WriteString("Keep the nutrition close to the chosen recipe and say which one you used in \"based_on\".\n")
	writeConstraints(&b, c)
	writeUsedNames(&b, usedNames)

	for _, mt := range mealTypes {
		fmt.Fprintf(&b, "\n%s options:\n", strings.ToUpper(mt.String()))
		for i, cand := range picks[mt] {
			fmt.Fprintf(&b, "%d. %s (%d kcal, %.0fg protein, %.0fg carbs, %.0fg fat", i+1, cand.Title,
				cand.Nutrition.Calories, cand.Nutrition.ProteinG, cand.Nutrition.CarbsG, cand.Nutrition.FatG)
			if cand.PrepTimeMinutes > 0 {
				fmt.Fprintf(&b, ", %d mins", cand.PrepTimeMinutes)
			}
			b.WriteString(")\n")
			if len(cand.Ingredients) > 0 {
				fmt.Fprintf(&b, "   Ingredients: %s\n", strings.Join(cand.Ingredients, ", "))
			}
		}
	}

	b.WriteString("\nReturn JSON of the form:\n{\n  \"recipes\": [\n    {\n      \"based_on\": \"Title of the option used\",\n      ")
	b.WriteString(recipeFields)
	b.WriteString("\n    }\n  ]\n}\n")
	return b.String()
}

// detailTier describes how much each meal of a whole-plan reply contains
type detailTier struct {
	name        string
	instruction string
}

var (
	tierFull    = detailTier{"full", "Give complete ingredient lists with quantities and step-by-step instructions."}
	tierMedium  = detailTier{"medium", "Give up to 6 ingredients and concise instructions."}
	tierMinimal = detailTier{"minimal", "Give up to 4 key ingredients and a one-sentence instruction."}
)

func detailTierFor(totalMeals int) detailTier {
	switch {
	case totalMeals < 6:
		return tierFull
	case totalMeals < 15:
		return tierMedium
	default:
		return tierMinimal
	}
}

// bulkPrompt asks for the whole plan in one reply
func bulkPrompt(c mealplan.GenerationConstraints) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %d-day meal plan with these meals each day: %s.\n", c.DurationDays, joinMealTypes(c.MealTypes))
	writeConstraints(&b, c)
	b.WriteString("Every recipe name in the plan must be different.\n")
	b.WriteString(detailTierFor(c.TotalMeals()).instruction + "\n")
	for day := 1; day <= c.DurationDays; day++ {
		if hint := varietyHint(day, c); hint != "" {
			fmt.Fprintf(&b, "Day %d focus: %s\n", day, hint)
		}
	}
	b.WriteString("Return JSON of the form:\n{\n  \"days\": [\n    {\n      \"day\": 1,\n      \"meals\": [\n        {\n          ")
	b.WriteString(recipeFields)
	b.WriteString("\n        }\n      ]\n    }\n  ]\n}\n")
	return b.String()
}
