package mealplan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"go.uber.org/zap"
)

// DefaultCallTimeout bounds a single language model call
const DefaultCallTimeout = 30 * time.Second

// generator is the model access and slot bookkeeping shared by the strategies
type generator struct {
	llm         outbound.TextGenerator
	strategy    string
	callTimeout time.Duration
	logger      *zap.Logger
	metrics     *monitoring.MetricsCollector
}

func newGenerator(llm outbound.TextGenerator, strategy string, callTimeout time.Duration, logger *zap.Logger, metrics *monitoring.MetricsCollector) *generator {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &generator{
		llm:         llm,
		strategy:    strategy,
		callTimeout: callTimeout,
		logger:      logger.Named(strategy),
		metrics:     metrics,
	}
}

// complete issues one model call and returns the JSON object found in the reply
func (g *generator) complete(ctx context.Context, req outbound.TextRequest) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.llm == nil {
		return nil, mealplan.ErrEmptyResponse
	}

	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	resp, err := g.llm.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, mealplan.ErrEmptyResponse
	}
	return extractJSON(resp.Content)
}

// completeRecipes issues a call whose reply has the {"recipes": [...]} shape
func (g *generator) completeRecipes(ctx context.Context, req outbound.TextRequest) ([]json.RawMessage, error) {
	payload, err := g.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	var body struct {
		Recipes []json.RawMessage `json:"recipes"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode recipes: %w", err)
	}
	if len(body.Recipes) == 0 {
		return nil, mealplan.ErrEmptyResponse
	}
	return body.Recipes, nil
}

// extractJSON returns the text between the first '{' and the last '}'.
// Models sometimes wrap JSON in prose or code fences.
func extractJSON(content string) (json.RawMessage, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return nil, mealplan.ErrEmptyResponse
	}
	raw := json.RawMessage(content[start : end+1])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: reply is not valid JSON", mealplan.ErrEmptyResponse)
	}
	return raw, nil
}

// slotResult is what a strategy produced for one slot before resolution
type slotResult struct {
	record    mealplan.MealRecord
	err       error
	called    bool
	corrected bool
	basedOn   string
	// alternate replaces the standard fallback when err is set
	alternate *mealplan.MealRecord
}

// resolveSlot drives the slot to a terminal state and returns the meal to
// store. Any error, invalid record or duplicate name yields a fallback.
func (g *generator) resolveSlot(slot *mealplan.Slot, res slotResult, c mealplan.GenerationConstraints, state *DiversityState) mealplan.MealRecord {
	if res.called {
		g.advance(slot, mealplan.SlotStatusLLMCallIssued)
	}

	meal, err := g.acceptSlot(slot, res, state)
	if err != nil {
		meal = g.substitute(slot, res, c, state)
		g.logger.Debug("Slot substituted",
			zap.Int("day", slot.DayIndex),
			zap.String("meal_type", slot.MealType.String()),
			zap.Error(err),
		)
	}

	g.metrics.SlotResolved(g.strategy, string(slot.Status()))
	g.logger.Debug("Slot resolved",
		zap.Int("day", slot.DayIndex),
		zap.String("meal_type", slot.MealType.String()),
		zap.String("recipe", meal.RecipeName),
		zap.Any("history", slot.History()),
	)
	return meal
}

func (g *generator) acceptSlot(slot *mealplan.Slot, res slotResult, state *DiversityState) (mealplan.MealRecord, error) {
	if res.err != nil {
		if res.called {
			g.advance(slot, mealplan.SlotStatusParseFailed)
		}
		return mealplan.MealRecord{}, res.err
	}
	if res.called {
		g.advance(slot, mealplan.SlotStatusParsed)
	}

	meal := res.record.Normalize(slot.MealType)
	if err := meal.Validate(); err != nil {
		return mealplan.MealRecord{}, err
	}

	if res.corrected {
		g.advance(slot, mealplan.SlotStatusNutritionCorrected)
		g.metrics.NutritionCorrected()
	} else {
		g.advance(slot, mealplan.SlotStatusValidated)
	}

	if !state.ClaimRecipeName(meal.RecipeName) {
		return mealplan.MealRecord{}, fmt.Errorf("%w: %s", mealplan.ErrDuplicateRecipe, meal.RecipeName)
	}

	g.advance(slot, mealplan.SlotStatusRecorded)
	return meal, nil
}

func (g *generator) substitute(slot *mealplan.Slot, res slotResult, c mealplan.GenerationConstraints, state *DiversityState) mealplan.MealRecord {
	slot.Substitute()
	if res.alternate != nil {
		alt := res.alternate.Normalize(slot.MealType)
		if alt.Validate() == nil && state.ClaimRecipeName(alt.RecipeName) {
			return alt
		}
	}
	return fallbackFor(slot.MealType, slot.DayIndex, c, state)
}

func (g *generator) advance(slot *mealplan.Slot, next mealplan.SlotStatus) {
	if err := slot.Transition(next); err != nil {
		g.logger.Warn("Unexpected slot transition", zap.Error(err))
	}
}

// fallbackFor returns the day-suffixed fallback meal and records its name
func fallbackFor(mealType mealplan.MealType, day int, c mealplan.GenerationConstraints, state *DiversityState) mealplan.MealRecord {
	meal := mealplan.FallbackMealVariant(mealType, c.DietaryRestrictions, day)
	if state != nil {
		state.RecordRecipeUsed(meal.RecipeName)
	}
	return meal
}

// fallbackDay fills every requested meal type with a fallback
func fallbackDay(day int, mealTypes []mealplan.MealType, c mealplan.GenerationConstraints, state *DiversityState) []mealplan.MealRecord {
	meals := make([]mealplan.MealRecord, 0, len(mealTypes))
	for _, mt := range mealTypes {
		meals = append(meals, fallbackFor(mt, day, c, state))
	}
	return meals
}

// errResults marks every meal type with the same failure
func errResults(mealTypes []mealplan.MealType, err error, called bool) map[mealplan.MealType]slotResult {
	out := make(map[mealplan.MealType]slotResult, len(mealTypes))
	for _, mt := range mealTypes {
		out[mt] = slotResult{err: err, called: called}
	}
	return out
}

// assignMeals maps decoded meals onto the requested meal types. Items that
// name a requested meal type claim it first; the rest fill the remaining
// slots in order.
func assignMeals(items []json.RawMessage, mealTypes []mealplan.MealType) map[mealplan.MealType]slotResult {
	out := make(map[mealplan.MealType]slotResult, len(mealTypes))
	requested := make(map[mealplan.MealType]bool, len(mealTypes))
	for _, mt := range mealTypes {
		requested[mt] = true
	}

	decoded := make([]*rawMeal, len(items))
	for i, item := range items {
		var m rawMeal
		if err := json.Unmarshal(item, &m); err != nil {
			continue
		}
		decoded[i] = &m
	}

	taken := make([]bool, len(items))
	for i, m := range decoded {
		if m == nil {
			continue
		}
		mt, err := mealplan.ParseMealType(m.MealType)
		if err != nil || !requested[mt] {
			continue
		}
		if _, done := out[mt]; done {
			continue
		}
		out[mt] = m.result(mt)
		taken[i] = true
	}

	next := 0
	for _, mt := range mealTypes {
		if _, done := out[mt]; done {
			continue
		}
		for next < len(decoded) && (taken[next] || decoded[next] == nil || namesOtherMealType(decoded[next], requested)) {
			next++
		}
		if next >= len(decoded) {
			out[mt] = slotResult{err: mealplan.ErrMissingSlot, called: true}
			continue
		}
		out[mt] = decoded[next].result(mt)
		taken[next] = true
		next++
	}
	return out
}

// namesOtherMealType reports whether the item declares a requested meal type
// that was already filled by an earlier item
func namesOtherMealType(m *rawMeal, requested map[mealplan.MealType]bool) bool {
	mt, err := mealplan.ParseMealType(m.MealType)
	return err == nil && requested[mt]
}

// rawMeal is the loosely typed meal a model returns
type rawMeal struct {
	MealType        string        `json:"meal_type"`
	RecipeName      string        `json:"recipe_name"`
	Name            string        `json:"name"`
	BasedOn         string        `json:"based_on"`
	Description     string        `json:"description"`
	Ingredients     flexStrings   `json:"ingredients"`
	NutritionalInfo *rawNutrition `json:"nutritional_info"`
	Nutrition       *rawNutrition `json:"nutrition"`
	PreparationTime flexNumber    `json:"preparation_time"`
	PrepTimeMinutes flexNumber    `json:"prep_time_minutes"`
	Instructions    flexText      `json:"instructions"`
	Source          string        `json:"source"`
}

type rawNutrition struct {
	Calories flexNumber `json:"calories"`
	Protein  flexNumber `json:"protein"`
	ProteinG flexNumber `json:"protein_g"`
	Carbs    flexNumber `json:"carbs"`
	CarbsG   flexNumber `json:"carbs_g"`
	Fat      flexNumber `json:"fat"`
	FatG     flexNumber `json:"fat_g"`
}

func (n *rawNutrition) toNutrition() mealplan.Nutrition {
	if n == nil {
		return mealplan.Nutrition{}
	}
	return mealplan.Nutrition{
		Calories: int(math.Round(n.Calories.value)),
		ProteinG: firstSet(n.Protein, n.ProteinG),
		CarbsG:   firstSet(n.Carbs, n.CarbsG),
		FatG:     firstSet(n.Fat, n.FatG),
	}
}

func (m *rawMeal) name() string {
	if name := strings.TrimSpace(m.RecipeName); name != "" {
		return name
	}
	return strings.TrimSpace(m.Name)
}

// result converts the raw meal into an unresolved slot result. A meal
// without a name counts as unparseable.
func (m *rawMeal) result(mealType mealplan.MealType) slotResult {
	name := m.name()
	if name == "" {
		return slotResult{err: mealplan.ErrEmptyRecipeName, called: true}
	}

	nutrition := m.NutritionalInfo
	if nutrition == nil {
		nutrition = m.Nutrition
	}
	prep := m.PreparationTime
	if !prep.set {
		prep = m.PrepTimeMinutes
	}
	source := strings.TrimSpace(m.Source)
	if source == "" {
		source = "AI Generated"
	}

	return slotResult{
		record: mealplan.MealRecord{
			MealType:        mealType,
			RecipeName:      name,
			Description:     m.Description,
			Ingredients:     []string(m.Ingredients),
			Nutrition:       nutrition.toNutrition(),
			PrepTimeMinutes: int(math.Round(prep.value)),
			Instructions:    string(m.Instructions),
			Provenance:      mealplan.ProvenanceAIGenerated,
			Source:          source,
		},
		called:  true,
		basedOn: strings.TrimSpace(m.BasedOn),
	}
}

// flexNumber accepts 12, 12.5, "12" and "12g" or "15 mins"
type flexNumber struct {
	value float64
	set   bool
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if v, ok := leadingNumber(s); ok {
			f.value, f.set = v, true
		}
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}
	f.value, f.set = v, true
	return nil
}

func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	return v, err == nil
}

func firstSet(values ...flexNumber) float64 {
	for _, v := range values {
		if v.set {
			return v.value
		}
	}
	return 0
}

// flexStrings accepts a list of strings or a single string
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var list []interface{}
	if err := json.Unmarshal(data, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			switch v := item.(type) {
			case string:
				out = append(out, v)
			case nil:
			default:
				out = append(out, fmt.Sprint(v))
			}
		}
		*f = out
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	*f = flexStrings{s}
	return nil
}

// flexText accepts a string or a list of steps
type flexText string

func (f *flexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexText(s)
		return nil
	}
	var steps flexStrings
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil
	}
	parts := make([]string, 0, len(steps))
	for _, step := range steps {
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d. %s", len(parts)+1, step))
	}
	*f = flexText(strings.Join(parts, " "))
	return nil
}

// isTimeout reports whether the error came from a deadline
func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
