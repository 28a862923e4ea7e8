// Package mealplan defines the meal plan domain model shared by every
// generation strategy and by the callers of the planner.
package mealplan

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MealType identifies a slot within a day
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
)

// MinPrepTimeMinutes is the lowest preparation time a meal may claim
const MinPrepTimeMinutes = 10

// DefaultMealTypes are used when a request does not name any
var DefaultMealTypes = []MealType{MealTypeBreakfast, MealTypeLunch, MealTypeDinner}

var canonicalIndex = map[MealType]int{
	MealTypeBreakfast: 0,
	MealTypeLunch:     1,
	MealTypeDinner:    2,
	MealTypeSnack:     3,
}

// ParseMealType converts free text into a MealType. Supper is accepted as dinner.
func ParseMealType(s string) (MealType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breakfast":
		return MealTypeBreakfast, nil
	case "lunch":
		return MealTypeLunch, nil
	case "dinner", "supper":
		return MealTypeDinner, nil
	case "snack":
		return MealTypeSnack, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMealType, s)
	}
}

// IsValid reports whether the meal type is one of the four known slots
func (m MealType) IsValid() bool {
	_, ok := canonicalIndex[m]
	return ok
}

// Index returns the canonical position of the meal type within a day
func (m MealType) Index() int {
	if idx, ok := canonicalIndex[m]; ok {
		return idx
	}
	return 0
}

// String implements fmt.Stringer
func (m MealType) String() string {
	return string(m)
}

// CanonicalMealTypes drops unknown and duplicate entries and sorts the rest
// into breakfast, lunch, dinner, snack order. An empty result falls back to
// DefaultMealTypes.
func CanonicalMealTypes(types []MealType) []MealType {
	seen := make(map[MealType]bool, len(types))
	out := make([]MealType, 0, len(types))
	for _, t := range types {
		if !t.IsValid() || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return append([]MealType(nil), DefaultMealTypes...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Index() < out[j].Index()
	})
	return out
}

// Provenance records whether a meal is grounded in an external candidate
type Provenance string

const (
	ProvenanceAIGenerated              Provenance = "ai_generated"
	ProvenanceAIGeneratedFromCandidate Provenance = "ai_generated_from_candidate"
)

// Nutrition holds per-serving macro values
type Nutrition struct {
	Calories int     `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// Clamp replaces negative or non-finite values with zero
func (n Nutrition) Clamp() Nutrition {
	if n.Calories < 0 {
		n.Calories = 0
	}
	n.ProteinG = nonNegative(n.ProteinG)
	n.CarbsG = nonNegative(n.CarbsG)
	n.FatG = nonNegative(n.FatG)
	return n
}

// IsZero reports whether no nutrition values were supplied
func (n Nutrition) IsZero() bool {
	return n.Calories == 0 && n.ProteinG == 0 && n.CarbsG == 0 && n.FatG == 0
}

// WithinTolerance reports whether every field of n is within the given
// relative tolerance of reference. Reference fields equal to zero only
// accept a zero value.
func (n Nutrition) WithinTolerance(reference Nutrition, tolerance float64) bool {
	return withinRatio(float64(n.Calories), float64(reference.Calories), tolerance) &&
		withinRatio(n.ProteinG, reference.ProteinG, tolerance) &&
		withinRatio(n.CarbsG, reference.CarbsG, tolerance) &&
		withinRatio(n.FatG, reference.FatG, tolerance)
}

func withinRatio(value, reference, tolerance float64) bool {
	if reference == 0 {
		return value == 0
	}
	return math.Abs(value-reference)/math.Abs(reference) <= tolerance
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// MealRecord is one generated meal
type MealRecord struct {
	MealType        MealType   `json:"meal_type"`
	RecipeName      string     `json:"recipe_name"`
	Description     string     `json:"description"`
	Ingredients     []string   `json:"ingredients"`
	Nutrition       Nutrition  `json:"nutrition"`
	PrepTimeMinutes int        `json:"prep_time_minutes"`
	Instructions    string     `json:"instructions"`
	Provenance      Provenance `json:"provenance"`
	Source          string     `json:"source,omitempty"`
}

// Validate checks every field constraint of a meal record
func (m MealRecord) Validate() error {
	switch {
	case !m.MealType.IsValid():
		return fmt.Errorf("%w: %q", ErrUnknownMealType, m.MealType)
	case strings.TrimSpace(m.RecipeName) == "":
		return ErrEmptyRecipeName
	case len(nonEmpty(m.Ingredients)) == 0:
		return ErrNoIngredients
	case strings.TrimSpace(m.Instructions) == "":
		return ErrNoInstructions
	case m.PrepTimeMinutes < MinPrepTimeMinutes:
		return ErrPrepTimeTooShort
	case m.Nutrition != m.Nutrition.Clamp():
		return ErrNegativeNutrition
	case m.Provenance != ProvenanceAIGenerated && m.Provenance != ProvenanceAIGeneratedFromCandidate:
		return ErrUnknownProvenance
	}
	return nil
}

// Normalize fills missing fields with neutral defaults and clamps numeric
// fields so the record satisfies Validate. The meal type is forced to the
// slot the record is destined for.
func (m MealRecord) Normalize(mealType MealType) MealRecord {
	m.MealType = mealType
	m.RecipeName = strings.TrimSpace(m.RecipeName)
	if m.RecipeName == "" {
		m.RecipeName = titleCase(string(mealType)) + " Recipe"
	}
	m.Description = strings.TrimSpace(m.Description)
	if m.Description == "" {
		m.Description = fmt.Sprintf("A delicious %s option.", mealType)
	}
	m.Ingredients = nonEmpty(m.Ingredients)
	if len(m.Ingredients) == 0 {
		m.Ingredients = []string{"Ingredients to be determined"}
	}
	m.Nutrition = m.Nutrition.Clamp()
	if m.PrepTimeMinutes < MinPrepTimeMinutes {
		m.PrepTimeMinutes = MinPrepTimeMinutes
	}
	m.Instructions = strings.TrimSpace(m.Instructions)
	if m.Instructions == "" {
		m.Instructions = "Follow standard cooking procedures."
	}
	if m.Provenance != ProvenanceAIGeneratedFromCandidate {
		m.Provenance = ProvenanceAIGenerated
	}
	return m
}

// NormalizedName returns the key used for duplicate detection
func NormalizedName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
