package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const planColumns = `id, user_id, query, dietary_restrictions, preferences, special_requirements,
	meal_plan_id, strategy, plan, created_at`

// PlanRepository implements outbound.PlanRepository on PostgreSQL
type PlanRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

var _ outbound.PlanRepository = (*PlanRepository)(nil)

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *pgxpool.Pool, logger *zap.Logger) *PlanRepository {
	return &PlanRepository{
		db:     db,
		logger: logger.Named("plan-repository"),
	}
}

// Save inserts a plan history record
func (r *PlanRepository) Save(ctx context.Context, record *mealplan.PlanRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	planJSON, err := json.Marshal(record.Plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}

	query := `INSERT INTO plan_history (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.Query,
		nonNil(record.DietaryRestrictions),
		nonNil(record.Preferences),
		nonNil(record.SpecialRequirements),
		record.MealPlanID,
		record.Strategy,
		planJSON,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save plan",
			zap.String("meal_plan_id", record.MealPlanID.String()),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// FindByMealPlanID retrieves the record of a generated plan
func (r *PlanRepository) FindByMealPlanID(ctx context.Context, mealPlanID uuid.UUID) (*mealplan.PlanRecord, error) {
	query := `SELECT ` + planColumns + ` FROM plan_history WHERE meal_plan_id = $1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, mealPlanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, outbound.ErrPlanNotFound
		}
		r.logger.Error("Failed to find plan",
			zap.String("meal_plan_id", mealPlanID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return record, nil
}

// ListByUser returns a user's plan history, newest first
func (r *PlanRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*mealplan.PlanRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + planColumns + ` FROM plan_history
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error("Failed to list plans", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var records []*mealplan.PlanRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*mealplan.PlanRecord, error) {
	var (
		record   mealplan.PlanRecord
		planJSON []byte
	)

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Query,
		&record.DietaryRestrictions,
		&record.Preferences,
		&record.SpecialRequirements,
		&record.MealPlanID,
		&record.Strategy,
		&planJSON,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(planJSON, &record.Plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &record, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
