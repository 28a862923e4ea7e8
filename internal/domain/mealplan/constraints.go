package mealplan

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// MinDurationDays is the shortest plan that can be generated
	MinDurationDays = 1
	// MaxDurationDays is the longest plan that can be generated
	MaxDurationDays = 7
)

// Mode selects a generation strategy
type Mode string

const (
	ModeDirect             Mode = "direct"
	ModeRetrievalAugmented Mode = "retrieval_augmented"
	ModeHybrid             Mode = "hybrid"
	ModeBulk               Mode = "bulk"
)

// Modes lists every supported mode in display order
var Modes = []Mode{ModeDirect, ModeRetrievalAugmented, ModeHybrid, ModeBulk}

// ParseMode converts configuration or request text into a Mode. The legacy
// names llm_only, rag and fast_llm are accepted as aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct", "llm_only":
		return ModeDirect, nil
	case "retrieval_augmented", "rag":
		return ModeRetrievalAugmented, nil
	case "hybrid":
		return ModeHybrid, nil
	case "bulk", "fast_llm":
		return ModeBulk, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// GenerationConstraints is the caller's request, read-only to the core
type GenerationConstraints struct {
	DurationDays        int        `json:"duration_days"`
	MealTypes           []MealType `json:"meal_types"`
	DietaryRestrictions []string   `json:"dietary_restrictions"`
	Preferences         []string   `json:"preferences"`
	SpecialRequirements []string   `json:"special_requirements"`
	Exclusions          []string   `json:"exclusions"`
	PrepTimeMax         *int       `json:"prep_time_max,omitempty"`
	Mode                Mode       `json:"mode,omitempty"`
}

// Clone returns a deep copy so callers' slices are never mutated
func (c GenerationConstraints) Clone() GenerationConstraints {
	out := c
	out.MealTypes = append([]MealType(nil), c.MealTypes...)
	out.DietaryRestrictions = append([]string(nil), c.DietaryRestrictions...)
	out.Preferences = append([]string(nil), c.Preferences...)
	out.SpecialRequirements = append([]string(nil), c.SpecialRequirements...)
	out.Exclusions = append([]string(nil), c.Exclusions...)
	if c.PrepTimeMax != nil {
		v := *c.PrepTimeMax
		out.PrepTimeMax = &v
	}
	return out
}

// Normalize clamps the duration, canonicalises meal types and lower-cases
// the tag sets. The declaration order of restrictions is preserved.
func (c GenerationConstraints) Normalize() GenerationConstraints {
	out := c.Clone()
	out.DurationDays = ClampDuration(out.DurationDays)
	out.MealTypes = CanonicalMealTypes(out.MealTypes)
	out.DietaryRestrictions = normalizeTags(out.DietaryRestrictions)
	out.Preferences = normalizeTags(out.Preferences)
	out.SpecialRequirements = normalizeTags(out.SpecialRequirements)
	out.Exclusions = normalizeTags(out.Exclusions)
	if out.PrepTimeMax != nil && *out.PrepTimeMax <= 0 {
		out.PrepTimeMax = nil
	}
	return out
}

// SortedRestrictions returns the restriction set in canonical sorted order,
// suitable for building cache keys
func (c GenerationConstraints) SortedRestrictions() []string {
	out := append([]string(nil), c.DietaryRestrictions...)
	sort.Strings(out)
	return out
}

// HasSpecialRequirement reports whether the given requirement was requested
func (c GenerationConstraints) HasSpecialRequirement(req string) bool {
	for _, r := range c.SpecialRequirements {
		if r == req {
			return true
		}
	}
	return false
}

// TotalMeals is the number of slots the plan must fill
func (c GenerationConstraints) TotalMeals() int {
	return c.DurationDays * len(c.MealTypes)
}

// ClampDuration forces a day count into [MinDurationDays, MaxDurationDays]
func ClampDuration(days int) int {
	if days < MinDurationDays {
		return MinDurationDays
	}
	if days > MaxDurationDays {
		return MaxDurationDays
	}
	return days
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
