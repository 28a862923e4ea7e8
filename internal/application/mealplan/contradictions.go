package mealplan

import (
	"fmt"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
)

// ConflictPair names two tags that cannot both apply
type ConflictPair struct {
	A string
	B string
}

func (p ConflictPair) matches(x, y string) bool {
	return (p.A == x && p.B == y) || (p.A == y && p.B == x)
}

// ConflictPolicy decides which side of a contradiction survives
type ConflictPolicy struct {
	Pairs []ConflictPair
	// PreferencesWin keeps a preference over a conflicting restriction
	PreferencesWin bool
}

// DefaultConflictPolicy lets restrictions beat preferences and the first
// declared restriction beat later ones
func DefaultConflictPolicy() ConflictPolicy {
	return ConflictPolicy{
		Pairs: []ConflictPair{
			{"vegan", "pescatarian"},
			{"vegan", "vegetarian"},
			{"keto", "high-carb"},
			{"low-carb", "high-carb"},
		},
	}
}

func (p ConflictPolicy) conflicts(x, y string) bool {
	x, y = mealplan.NormalizedName(x), mealplan.NormalizedName(y)
	for _, pair := range p.Pairs {
		if pair.matches(x, y) {
			return true
		}
	}
	return false
}

func (p ConflictPolicy) conflictsWithAny(tag string, others []string) (string, bool) {
	for _, o := range others {
		if p.conflicts(tag, o) {
			return o, true
		}
	}
	return "", false
}

// Resolve removes contradictory tags and explains each decision. Conflicts
// between two preferences are left in place and only reported.
func (p ConflictPolicy) Resolve(c mealplan.GenerationConstraints) (mealplan.GenerationConstraints, []string) {
	out := c.Clone()
	var warnings []string

	restrictions := make([]string, 0, len(out.DietaryRestrictions))
	for _, r := range out.DietaryRestrictions {
		if kept, ok := p.conflictsWithAny(r, restrictions); ok {
			warnings = append(warnings, fmt.Sprintf(
				"Dietary restrictions %q and %q conflict; kept %q.", kept, r, kept))
			continue
		}
		restrictions = append(restrictions, r)
	}

	preferences := make([]string, 0, len(out.Preferences))
	for _, pref := range out.Preferences {
		r, ok := p.conflictsWithAny(pref, restrictions)
		if !ok {
			preferences = append(preferences, pref)
			continue
		}
		if p.PreferencesWin {
			restrictions = remove(restrictions, r)
			preferences = append(preferences, pref)
			warnings = append(warnings, fmt.Sprintf(
				"Restriction %q conflicts with preference %q; kept %q.", r, pref, pref))
			continue
		}
		warnings = append(warnings, fmt.Sprintf(
			"Preference %q conflicts with restriction %q; kept %q.", pref, r, r))
	}

	for i := 0; i < len(preferences); i++ {
		for j := i + 1; j < len(preferences); j++ {
			if p.conflicts(preferences[i], preferences[j]) {
				warnings = append(warnings, fmt.Sprintf(
					"Preferences %q and %q conflict and need clarification.", preferences[i], preferences[j]))
			}
		}
	}

	out.DietaryRestrictions = restrictions
	out.Preferences = preferences
	return out, warnings
}

func remove(items []string, target string) []string {
	out := items[:0]
	for _, item := range items {
		if item != target {
			out = append(out, item)
		}
	}
	return out
}
