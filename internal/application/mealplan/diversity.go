package mealplan

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
)

// DiversityState tracks which recipe names and candidate titles have been
// used within a single plan. It is shared by every task generating that plan.
type DiversityState struct {
	mu             sync.Mutex
	usedNames      map[string]struct{}
	nameOrder      []string
	usedCandidates map[mealplan.MealType][]string
	rng            *rand.Rand
}

// NewDiversityState creates an empty state
func NewDiversityState() *DiversityState {
	return NewDiversityStateWithSeed(time.Now().UnixNano())
}

// NewDiversityStateWithSeed creates an empty state with a deterministic shuffle
func NewDiversityStateWithSeed(seed int64) *DiversityState {
	return &DiversityState{
		usedNames:      make(map[string]struct{}),
		usedCandidates: make(map[mealplan.MealType][]string),
		rng:            rand.New(rand.NewSource(seed)),
	}
}

// FilterUnused drops candidates whose titles were already used for the meal
// type. If that would leave nothing, the original list is returned.
func (d *DiversityState) FilterUnused(candidates []mealplan.CandidateRecipe, mealType mealplan.MealType) []mealplan.CandidateRecipe {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filterUnusedLocked(candidates, mealType)
}

func (d *DiversityState) filterUnusedLocked(candidates []mealplan.CandidateRecipe, mealType mealplan.MealType) []mealplan.CandidateRecipe {
	used := d.usedCandidates[mealType]
	if len(used) == 0 {
		return candidates
	}
	seen := make(map[string]struct{}, len(used))
	for _, title := range used {
		seen[title] = struct{}{}
	}

	out := make([]mealplan.CandidateRecipe, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.Title]; !ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

// RecordCandidateUsed marks a candidate title as used for the meal type
func (d *DiversityState) RecordCandidateUsed(mealType mealplan.MealType, title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recordCandidateLocked(mealType, title)
}

func (d *DiversityState) recordCandidateLocked(mealType mealplan.MealType, title string) {
	for _, t := range d.usedCandidates[mealType] {
		if t == title {
			return
		}
	}
	d.usedCandidates[mealType] = append(d.usedCandidates[mealType], title)
}

// UsedCandidates returns the titles recorded for a meal type, oldest first
func (d *DiversityState) UsedCandidates(mealType mealplan.MealType) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.usedCandidates[mealType]...)
}

// ClaimCandidates filters out used candidates, shuffles the remainder and
// records up to n of them as used in one step, so concurrent callers never
// pick the same unused candidate.
func (d *DiversityState) ClaimCandidates(mealType mealplan.MealType, candidates []mealplan.CandidateRecipe, n int) []mealplan.CandidateRecipe {
	if len(candidates) == 0 || n <= 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	pool := append([]mealplan.CandidateRecipe(nil), d.filterUnusedLocked(candidates, mealType)...)
	d.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > n {
		pool = pool[:n]
	}
	for _, c := range pool {
		d.recordCandidateLocked(mealType, c.Title)
	}
	return pool
}

// IsRecipeNameUsed reports whether the name was recorded, ignoring case and
// surrounding whitespace
func (d *DiversityState) IsRecipeNameUsed(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.usedNames[mealplan.NormalizedName(name)]
	return ok
}

// RecordRecipeUsed adds the name to the used set
func (d *DiversityState) RecordRecipeUsed(name string) {
	d.ClaimRecipeName(name)
}

// ClaimRecipeName records the name and reports whether it was unused before
func (d *DiversityState) ClaimRecipeName(name string) bool {
	key := mealplan.NormalizedName(name)
	if key == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.usedNames[key]; ok {
		return false
	}
	d.usedNames[key] = struct{}{}
	d.nameOrder = append(d.nameOrder, strings.TrimSpace(name))
	return true
}

// UsedRecipeNames returns up to limit of the most recently used names.
// A limit of zero or less returns all of them.
func (d *DiversityState) UsedRecipeNames(limit int) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := d.nameOrder
	if limit > 0 && len(names) > limit {
		names = names[len(names)-limit:]
	}
	return append([]string(nil), names...)
}
