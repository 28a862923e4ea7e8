package mealplan

import (
	"fmt"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
)

const (
	defaultAvgPrepMinutes = 25
	budgetDiscount        = 0.7
)

// costBand is the price per calorie for plans up to a calorie total
type costBand struct {
	maxCalories int
	low         float64
	high        float64
}

// costBands is ordered by maxCalories; the last band is open-ended
var costBands = []costBand{
	{maxCalories: 5000, low: 0.008, high: 0.012},
	{maxCalories: 15000, low: 0.0075, high: 0.0115},
	{maxCalories: 0, low: 0.007, high: 0.011},
}

// Summarize computes the plan summary from its days
func Summarize(days []mealplan.DayPlan, c mealplan.GenerationConstraints) mealplan.Summary {
	var meals, calories, prep int
	for _, day := range days {
		for _, m := range day.Meals {
			meals++
			calories += m.Nutrition.Calories
			prep += m.PrepTimeMinutes
		}
	}

	avgPrep := defaultAvgPrepMinutes
	if meals > 0 {
		avgPrep = prep / meals
	}

	return mealplan.Summary{
		TotalMeals:         meals,
		DietaryCompliance:  dietaryCompliance(c),
		EstimatedCost:      EstimateCost(calories, isBudgetFriendly(c)),
		AvgPrepTimeMinutes: avgPrep,
		TotalCalories:      calories,
	}
}

// EstimateCost returns a "$low-high" band for the calorie total
func EstimateCost(totalCalories int, budgetFriendly bool) string {
	band := costBands[len(costBands)-1]
	for _, b := range costBands {
		if b.maxCalories > 0 && totalCalories < b.maxCalories {
			band = b
			break
		}
	}

	low := int(float64(totalCalories) * band.low)
	high := int(float64(totalCalories) * band.high)
	if budgetFriendly {
		low = int(float64(low) * budgetDiscount)
		high = int(float64(high) * budgetDiscount)
	}
	return fmt.Sprintf("$%d-%d", low, high)
}

func dietaryCompliance(c mealplan.GenerationConstraints) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tag := range append(append([]string(nil), c.DietaryRestrictions...), c.Preferences...) {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return []string{"standard"}
	}
	return out
}

func isBudgetFriendly(c mealplan.GenerationConstraints) bool {
	for _, tags := range [][]string{c.SpecialRequirements, c.Preferences} {
		for _, t := range tags {
			if mealplan.NormalizedName(t) == "budget-friendly" {
				return true
			}
		}
	}
	return false
}
