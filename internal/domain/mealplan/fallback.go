package mealplan

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DegradedServiceWarning is attached to the default plan
const DegradedServiceWarning = "Meal plan generation is temporarily degraded; a standard plan was returned instead of a personalised one."

// DefaultPlanDays is the length of the hard-coded default plan
const DefaultPlanDays = 3

var fallbackMeals = map[MealType]MealRecord{
	MealTypeBreakfast: {
		RecipeName:      "Healthy Breakfast Bowl",
		Description:     "A nutritious and filling breakfast option.",
		Ingredients:     []string{"1 cup oats", "1 cup milk", "1 banana", "1 tbsp honey"},
		Nutrition:       Nutrition{Calories: 350, ProteinG: 12, CarbsG: 60, FatG: 8},
		PrepTimeMinutes: 10,
		Instructions:    "1. Cook oats with milk. 2. Slice banana on top. 3. Drizzle with honey.",
		Source:          "AI Generated (Fallback)",
	},
	MealTypeLunch: {
		RecipeName:      "Fresh Salad Bowl",
		Description:     "A light and healthy lunch option.",
		Ingredients:     []string{"2 cups mixed greens", "1/2 cup cherry tomatoes", "1/4 cup dressing", "1/4 cup nuts"},
		Nutrition:       Nutrition{Calories: 300, ProteinG: 10, CarbsG: 20, FatG: 20},
		PrepTimeMinutes: 15,
		Instructions:    "1. Wash and prepare greens. 2. Add tomatoes. 3. Toss with dressing. 4. Top with nuts.",
		Source:          "AI Generated (Fallback)",
	},
	MealTypeDinner: {
		RecipeName:      "Balanced Dinner Plate",
		Description:     "A well-rounded dinner option.",
		Ingredients:     []string{"1 protein portion", "1 cup vegetables", "1/2 cup grains", "1 tbsp oil"},
		Nutrition:       Nutrition{Calories: 500, ProteinG: 30, CarbsG: 45, FatG: 15},
		PrepTimeMinutes: 30,
		Instructions:    "1. Cook protein. 2. Prepare vegetables. 3. Cook grains. 4. Plate together.",
		Source:          "AI Generated (Fallback)",
	},
	MealTypeSnack: {
		RecipeName:      "Fruit and Nut Snack Plate",
		Description:     "A quick, energising snack.",
		Ingredients:     []string{"1 apple", "2 tbsp almond butter", "1/4 cup mixed nuts"},
		Nutrition:       Nutrition{Calories: 250, ProteinG: 7, CarbsG: 25, FatG: 14},
		PrepTimeMinutes: 10,
		Instructions:    "1. Slice the apple. 2. Serve with almond butter and nuts.",
		Source:          "AI Generated (Fallback)",
	},
}

var plantBasedSwaps = strings.NewReplacer(
	"milk", "plant-based milk",
	"protein portion", "tofu portion",
	"honey", "maple syrup",
)

// FallbackMeal returns the deterministic placeholder for a slot. Vegan and
// vegetarian restrictions swap animal ingredients for plant-based ones.
func FallbackMeal(mealType MealType, restrictions []string) MealRecord {
	base, ok := fallbackMeals[mealType]
	if !ok {
		base = fallbackMeals[MealTypeDinner]
	}
	meal := base
	meal.Ingredients = append([]string(nil), base.Ingredients...)
	if isPlantBased(restrictions) {
		for i, ing := range meal.Ingredients {
			meal.Ingredients[i] = plantBasedSwaps.Replace(ing)
		}
	}
	meal.Provenance = ProvenanceAIGenerated
	return meal.Normalize(mealType)
}

// FallbackMealVariant is FallbackMeal with a day suffix on the name, used when
// a plain fallback would collide with a name already recorded in the plan
func FallbackMealVariant(mealType MealType, restrictions []string, dayIndex int) MealRecord {
	meal := FallbackMeal(mealType, restrictions)
	meal.RecipeName = meal.RecipeName + " (Day " + strconv.Itoa(dayIndex) + ")"
	return meal
}

// DefaultPlan returns the fixed three-day plan served when generation fails
// catastrophically
func DefaultPlan(start time.Time) MealPlan {
	days := make([]DayPlan, 0, DefaultPlanDays)
	for day := 1; day <= DefaultPlanDays; day++ {
		meals := make([]MealRecord, 0, len(DefaultMealTypes))
		for _, mt := range DefaultMealTypes {
			meals = append(meals, FallbackMeal(mt, nil))
		}
		days = append(days, NewDayPlan(start, day, meals))
	}

	warning := DegradedServiceWarning
	return MealPlan{
		ID:           uuid.New(),
		DurationDays: DefaultPlanDays,
		GeneratedAt:  start,
		Strategy:     "default",
		Days:         days,
		Summary: Summary{
			TotalMeals:         DefaultPlanDays * len(DefaultMealTypes),
			DietaryCompliance:  []string{"standard"},
			EstimatedCost:      "$27-41",
			AvgPrepTimeMinutes: 18,
			TotalCalories:      3450,
		},
		Warning: &warning,
	}
}

func isPlantBased(restrictions []string) bool {
	for _, r := range restrictions {
		switch NormalizedName(r) {
		case "vegan", "vegetarian":
			return true
		}
	}
	return false
}
