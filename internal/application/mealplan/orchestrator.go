package mealplan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/monitoring"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxConcurrentDays = 3
	DefaultPlanTimeout       = 3 * time.Minute
)

// InterruptedWarning is added when a deadline or cancellation cut generation short
const InterruptedWarning = "Generation did not finish; some meals are standard recipes."

// OrchestratorConfig tunes plan generation
type OrchestratorConfig struct {
	MaxConcurrentDays int
	PlanTimeout       time.Duration
	Policy            ConflictPolicy
}

// Orchestrator turns constraints into a complete plan. It never fails: any
// upstream problem degrades individual meals, and anything worse yields the
// default plan.
type Orchestrator struct {
	selector *Selector
	cfg      OrchestratorConfig
	logger   *zap.Logger
	metrics  *monitoring.MetricsCollector
	now      func() time.Time
	newState func() *DiversityState
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(selector *Selector, cfg OrchestratorConfig, logger *zap.Logger, metrics *monitoring.MetricsCollector) *Orchestrator {
	if cfg.MaxConcurrentDays < 1 {
		cfg.MaxConcurrentDays = DefaultMaxConcurrentDays
	}
	if cfg.PlanTimeout <= 0 {
		cfg.PlanTimeout = DefaultPlanTimeout
	}
	if cfg.Policy.Pairs == nil {
		cfg.Policy = DefaultConflictPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		selector: selector,
		cfg:      cfg,
		logger:   logger.Named("orchestrator"),
		metrics:  metrics,
		now:      time.Now,
		newState: NewDiversityState,
	}
}

// Resolve normalizes the constraints and applies the conflict policy. The
// warnings describe every restriction that was dropped.
func (o *Orchestrator) Resolve(constraints mealplan.GenerationConstraints) (mealplan.GenerationConstraints, []string) {
	return o.cfg.Policy.Resolve(constraints.Normalize())
}

// Generate builds the plan for the constraints
func (o *Orchestrator) Generate(ctx context.Context, constraints mealplan.GenerationConstraints) (plan mealplan.MealPlan) {
	start := o.now().UTC()
	strategyName := "default"

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Plan generation panicked",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			hubFor(ctx).Recover(r)
			plan = mealplan.DefaultPlan(start)
			o.metrics.PlanGenerated(strategyName, "default", time.Since(start))
		}
	}()

	c, warnings := o.Resolve(constraints)

	strategy, err := o.selector.Select(c.Mode)
	if err != nil {
		return o.defaultPlan(ctx, start, strategyName, err)
	}
	strategyName = strategy.Name()

	o.logger.Info("Generating meal plan",
		zap.String("strategy", strategyName),
		zap.Int("days", c.DurationDays),
		zap.Int("meals_per_day", len(c.MealTypes)),
		zap.Strings("restrictions", c.DietaryRestrictions),
	)

	planCtx, cancel := context.WithTimeout(ctx, o.cfg.PlanTimeout)
	defer cancel()

	state := o.newState()
	var days []mealplan.DayPlan
	switch s := strategy.(type) {
	case PlanStrategy:
		days = s.GenerateWholePlan(planCtx, c, state)
	case DayStrategy:
		days, err = o.generateDays(planCtx, s, c, state)
	default:
		err = fmt.Errorf("strategy %s cannot generate meals", strategyName)
	}
	if err != nil {
		return o.defaultPlan(ctx, start, strategyName, err)
	}

	days = completeDays(days, c, state, start)
	if err := validateDays(days, c); err != nil {
		return o.defaultPlan(ctx, start, strategyName, err)
	}

	outcome := "success"
	if err := planCtx.Err(); err != nil {
		outcome = "cancelled"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		warnings = append(warnings, InterruptedWarning)
	}

	plan = mealplan.MealPlan{
		ID:           uuid.New(),
		DurationDays: c.DurationDays,
		GeneratedAt:  start,
		Strategy:     strategyName,
		Days:         days,
		Summary:      Summarize(days, c),
		Warning:      joinWarnings(warnings),
	}

	elapsed := o.now().UTC().Sub(start)
	o.metrics.PlanGenerated(strategyName, outcome, elapsed)
	o.logger.Info("Meal plan generated",
		zap.String("meal_plan_id", plan.ID.String()),
		zap.String("strategy", strategyName),
		zap.Int("total_meals", plan.Summary.TotalMeals),
		zap.Duration("duration", elapsed),
	)
	return plan
}

// generateDays runs the day strategy across days with bounded concurrency.
// Days that start after cancellation are filled with fallbacks.
func (o *Orchestrator) generateDays(ctx context.Context, s DayStrategy, c mealplan.GenerationConstraints, state *DiversityState) ([]mealplan.DayPlan, error) {
	results := make([][]mealplan.MealRecord, c.DurationDays)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentDays)
	for i := 0; i < c.DurationDays; i++ {
		day := i + 1
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					hubFor(ctx).Recover(r)
					err = fmt.Errorf("day %d panicked: %v", day, r)
				}
			}()

			if gctx.Err() != nil {
				results[i] = fallbackDay(day, c.MealTypes, c, state)
				return nil
			}
			results[i] = s.GenerateDay(gctx, day, c.MealTypes, c, state)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	days := make([]mealplan.DayPlan, c.DurationDays)
	for i, meals := range results {
		days[i] = mealplan.DayPlan{DayIndex: i + 1, Meals: meals}
	}
	return days, nil
}

// completeDays dates every day and fills any meal a strategy left out
func completeDays(days []mealplan.DayPlan, c mealplan.GenerationConstraints, state *DiversityState, start time.Time) []mealplan.DayPlan {
	byIndex := make(map[int]mealplan.DayPlan, len(days))
	for _, d := range days {
		byIndex[d.DayIndex] = d
	}

	out := make([]mealplan.DayPlan, 0, c.DurationDays)
	for day := 1; day <= c.DurationDays; day++ {
		existing := make(map[mealplan.MealType]mealplan.MealRecord)
		for _, m := range byIndex[day].Meals {
			if _, dup := existing[m.MealType]; !dup {
				existing[m.MealType] = m
			}
		}

		meals := make([]mealplan.MealRecord, 0, len(c.MealTypes))
		for _, mt := range c.MealTypes {
			m, ok := existing[mt]
			if !ok {
				m = fallbackFor(mt, day, c, state)
			}
			meals = append(meals, m)
		}
		out = append(out, mealplan.NewDayPlan(start, day, meals))
	}
	return out
}

func validateDays(days []mealplan.DayPlan, c mealplan.GenerationConstraints) error {
	if len(days) != c.DurationDays {
		return fmt.Errorf("plan has %d days, want %d", len(days), c.DurationDays)
	}
	for i, d := range days {
		if d.DayIndex != i+1 {
			return fmt.Errorf("day %d out of order", d.DayIndex)
		}
		if len(d.Meals) != len(c.MealTypes) {
			return fmt.Errorf("day %d has %d meals, want %d", d.DayIndex, len(d.Meals), len(c.MealTypes))
		}
		for _, m := range d.Meals {
			if err := m.Validate(); err != nil {
				return fmt.Errorf("day %d %s: %w", d.DayIndex, m.MealType, err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) defaultPlan(ctx context.Context, start time.Time, strategy string, err error) mealplan.MealPlan {
	o.logger.Error("Plan generation failed, returning default plan",
		zap.String("strategy", strategy),
		zap.Error(err),
	)
	hubFor(ctx).CaptureException(err)
	o.metrics.PlanGenerated(strategy, "default", o.now().UTC().Sub(start))
	return mealplan.DefaultPlan(start)
}

func joinWarnings(warnings []string) *string {
	var parts []string
	for _, w := range warnings {
		if w = strings.TrimSpace(w); w != "" {
			parts = append(parts, w)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	joined := strings.Join(parts, " ")
	return &joined
}

func hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}
