package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
)

const (
	minMealsPerDay  = 1
	maxMealsPerDay  = 4
	maxRestrictions = 5
	quickPrepTime   = 30
)

// allMealTypes is the order meal counts are filled in
var allMealTypes = []mealplan.MealType{
	mealplan.MealTypeBreakfast, mealplan.MealTypeLunch, mealplan.MealTypeDinner, mealplan.MealTypeSnack,
}

// draft is the request being corrected by the rules
type draft struct {
	parsed      ParsedQuery
	mealTypes   []mealplan.MealType
	prepTimeMax *int
}

// rule inspects the query and draft, corrects the draft in place and returns
// a warning when the user should know about a correction
type rule func(query string, d *draft) string

// Validator applies correction rules to a parsed query
type Validator struct {
	rules []rule
}

// NewValidator creates a validator with the standard rules
func NewValidator() *Validator {
	return &Validator{
		rules: []rule{
			mealCountRule,
			durationRule,
			restrictionCountRule,
			contradictionRule,
			budgetRule,
			prepTimeRule,
		},
	}
}

// Validate returns the corrected constraints and any warnings
func (v *Validator) Validate(query string, parsed ParsedQuery) (mealplan.GenerationConstraints, []string) {
	d := &draft{parsed: parsed}
	d.parsed.SpecialRequirements = append([]string(nil), parsed.SpecialRequirements...)

	var warnings []string
	for _, r := range v.rules {
		if w := r(query, d); w != "" {
			warnings = append(warnings, w)
		}
	}

	return mealplan.GenerationConstraints{
		DurationDays:        d.parsed.DurationDays,
		MealTypes:           d.mealTypes,
		DietaryRestrictions: d.parsed.DietaryRestrictions,
		Preferences:         d.parsed.Preferences,
		SpecialRequirements: d.parsed.SpecialRequirements,
		Exclusions:          d.parsed.Exclusions,
		PrepTimeMax:         d.prepTimeMax,
	}.Normalize(), warnings
}

var mealCountPattern = regexp.MustCompile(`(\d+)\s*meals?\b`)

func mealCountRule(query string, d *draft) string {
	q := strings.ToLower(query)

	if m := mealCountPattern.FindStringSubmatch(q); m != nil {
		count, _ := strconv.Atoi(m[1])
		clamped := count
		if clamped < minMealsPerDay {
			clamped = minMealsPerDay
		}
		if clamped > maxMealsPerDay {
			clamped = maxMealsPerDay
		}
		d.mealTypes = append([]mealplan.MealType(nil), allMealTypes[:clamped]...)
		if clamped != count {
			return fmt.Sprintf("Meal count adjusted to %d (valid range: %d-%d)", clamped, minMealsPerDay, maxMealsPerDay)
		}
		return ""
	}

	var mentioned []mealplan.MealType
	if strings.Contains(q, "breakfast") {
		mentioned = append(mentioned, mealplan.MealTypeBreakfast)
	}
	if strings.Contains(q, "lunch") {
		mentioned = append(mentioned, mealplan.MealTypeLunch)
	}
	if strings.Contains(q, "dinner") || strings.Contains(q, "supper") {
		mentioned = append(mentioned, mealplan.MealTypeDinner)
	}
	if strings.Contains(q, "snack") {
		mentioned = append(mentioned, mealplan.MealTypeSnack)
	}
	if len(mentioned) > 0 {
		d.mealTypes = mentioned
		return ""
	}

	d.mealTypes = append([]mealplan.MealType(nil), mealplan.DefaultMealTypes...)
	return ""
}

func durationRule(_ string, d *draft) string {
	switch {
	case d.parsed.DurationDays < mealplan.MinDurationDays:
		d.parsed.DurationDays = mealplan.MinDurationDays
		return "Duration adjusted to minimum 1 day"
	case d.parsed.DurationDays > mealplan.MaxDurationDays:
		d.parsed.DurationDays = mealplan.MaxDurationDays
		return "Duration adjusted to maximum 7 days"
	}
	return ""
}

func restrictionCountRule(_ string, d *draft) string {
	if n := len(d.parsed.DietaryRestrictions); n > maxRestrictions {
		return fmt.Sprintf("Many dietary restrictions specified (%d). Some may conflict.", n)
	}
	return ""
}

func contradictionRule(_ string, d *draft) string {
	if len(d.parsed.Contradictions) == 0 {
		return ""
	}
	return "Contradictory requirements detected: " + strings.Join(d.parsed.Contradictions, ", ")
}

var budgetLevels = []struct {
	level    string
	keywords []string
}{
	{"budget-friendly", []string{"budget", "cheap", "affordable", "low cost", "inexpensive"}},
	{"moderate", []string{"moderate", "reasonable", "average"}},
	{"premium", []string{"premium", "expensive", "luxury", "gourmet", "high-end"}},
}

func budgetRule(query string, d *draft) string {
	q := strings.ToLower(query)
	for _, b := range budgetLevels {
		for _, kw := range b.keywords {
			if !strings.Contains(q, kw) {
				continue
			}
			kept := make([]string, 0, len(d.parsed.SpecialRequirements)+1)
			for _, req := range d.parsed.SpecialRequirements {
				if !isBudgetLevel(req) {
					kept = append(kept, req)
				}
			}
			d.parsed.SpecialRequirements = append(kept, b.level)
			return ""
		}
	}
	return ""
}

func isBudgetLevel(req string) bool {
	for _, b := range budgetLevels {
		if strings.EqualFold(strings.TrimSpace(req), b.level) {
			return true
		}
	}
	return false
}

var prepTimePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*minute`),
	regexp.MustCompile(`(\d+)\s*min`),
	regexp.MustCompile(`under\s*(\d+)`),
	regexp.MustCompile(`less\s*than\s*(\d+)`),
}

var quickKeywords = []string{"quick", "fast", "easy", "simple"}

func prepTimeRule(query string, d *draft) string {
	q := strings.ToLower(query)

	var prep int
	for _, p := range prepTimePatterns {
		if m := p.FindStringSubmatch(q); m != nil {
			prep, _ = strconv.Atoi(m[1])
			break
		}
	}
	if prep == 0 {
		for _, kw := range quickKeywords {
			if strings.Contains(q, kw) {
				prep = quickPrepTime
				break
			}
		}
	}
	if prep <= 0 {
		return ""
	}

	d.prepTimeMax = &prep
	if prep <= quickPrepTime && !containsFold(d.parsed.SpecialRequirements, "quick-meals") {
		d.parsed.SpecialRequirements = append(d.parsed.SpecialRequirements, "quick-meals")
	}
	return ""
}

func containsFold(items []string, target string) bool {
	for _, item := range items {
		if strings.EqualFold(strings.TrimSpace(item), target) {
			return true
		}
	}
	return false
}
