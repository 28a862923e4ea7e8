// Package mealplan implements meal plan generation: the strategies, the
// diversity tracking they share and the orchestration around them
package mealplan

import (
	"context"
	"strings"
	"time"

	"github.com/alchemorsel/mealplanner/internal/application/query"
	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/ports/inbound"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	apperrors "github.com/alchemorsel/mealplanner/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	anonymousUser       = "anonymous"
	defaultHistoryLimit = 20
	maxQueryLength      = 2000
)

// QueryParser extracts requirements from free text
type QueryParser interface {
	Parse(ctx context.Context, text string) query.ParsedQuery
}

// Service implements the meal plan use cases
type Service struct {
	parser       QueryParser
	validator    *query.Validator
	orchestrator *Orchestrator
	plans        outbound.PlanRepository
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates the meal plan service. A nil repository disables history.
func NewService(
	parser QueryParser,
	validator *query.Validator,
	orchestrator *Orchestrator,
	plans outbound.PlanRepository,
	logger *zap.Logger,
) *Service {
	if validator == nil {
		validator = query.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		parser:       parser,
		validator:    validator,
		orchestrator: orchestrator,
		plans:        plans,
		logger:       logger.Named("mealplan-service"),
		now:          time.Now,
	}
}

var _ inbound.MealPlanService = (*Service)(nil)

// GenerateFromQuery parses the request and generates a plan for it
func (s *Service) GenerateFromQuery(ctx context.Context, req inbound.QueryRequest) (*mealplan.MealPlan, error) {
	text := strings.TrimSpace(req.Query)
	if text == "" {
		return nil, apperrors.NewValidationError(mealplan.ErrEmptyQuery.Error()).WithCause(mealplan.ErrEmptyQuery)
	}
	if len(text) > maxQueryLength {
		return nil, apperrors.NewValidationError("query is too long")
	}

	var mode mealplan.Mode
	if req.Mode != "" {
		parsed, err := mealplan.ParseMode(req.Mode)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error()).WithCause(err)
		}
		mode = parsed
	}

	parsed := s.parser.Parse(ctx, text)
	constraints, warnings := s.validator.Validate(text, parsed)
	constraints.Mode = mode

	s.logger.Info("Generating plan from query",
		zap.String("user_id", req.UserID),
		zap.Int("days", constraints.DurationDays),
		zap.Strings("restrictions", constraints.DietaryRestrictions),
		zap.Strings("preferences", constraints.Preferences),
		zap.Strings("special_requirements", constraints.SpecialRequirements),
	)

	plan := s.orchestrator.Generate(ctx, constraints)
	plan.Warning = joinWarnings(append(warnings, derefWarning(plan.Warning)))

	resolved, _ := s.orchestrator.Resolve(constraints)
	s.saveHistory(ctx, req.UserID, text, resolved, &plan)
	return &plan, nil
}

// Generate builds a plan from structured constraints
func (s *Service) Generate(ctx context.Context, constraints mealplan.GenerationConstraints) *mealplan.MealPlan {
	plan := s.orchestrator.Generate(ctx, constraints)
	return &plan
}

// History lists a user's previous plans, newest first
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*mealplan.PlanRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}
	if s.plans == nil {
		return []*mealplan.PlanRecord{}, nil
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	records, err := s.plans.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list plan history", err)
	}
	return records, nil
}

// saveHistory stores the plan with the constraints it was generated under;
// failures are logged and never surface
func (s *Service) saveHistory(ctx context.Context, userID, text string, c mealplan.GenerationConstraints, plan *mealplan.MealPlan) {
	if s.plans == nil {
		return
	}
	if userID == "" {
		userID = anonymousUser
	}

	record := &mealplan.PlanRecord{
		ID:                  uuid.New(),
		UserID:              userID,
		Query:               text,
		DietaryRestrictions: c.DietaryRestrictions,
		Preferences:         c.Preferences,
		SpecialRequirements: c.SpecialRequirements,
		MealPlanID:          plan.ID,
		Strategy:            plan.Strategy,
		Plan:                *plan,
		CreatedAt:           s.now().UTC(),
	}
	if err := s.plans.Save(ctx, record); err != nil {
		s.logger.Warn("Failed to save plan history",
			zap.String("meal_plan_id", plan.ID.String()),
			zap.Error(err),
		)
	}
}

func derefWarning(w *string) string {
	if w == nil {
		return ""
	}
	return *w
}
