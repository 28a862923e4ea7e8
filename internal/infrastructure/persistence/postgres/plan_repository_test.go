//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/config"
	"github.com/alchemorsel/mealplanner/internal/ports/outbound"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

type PlanRepositoryTestSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	repo      *PlanRepository
	closeFn   func()
}

func (s *PlanRepositoryTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("mealplanner_test"),
		tcpostgres.WithUsername("mealplanner"),
		tcpostgres.WithPassword("mealplanner"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T(), err)
	s.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	logger := zaptest.NewLogger(s.T())
	pool, err := Connect(ctx, config.DatabaseConfig{
		Enabled:       true,
		URL:           connStr,
		MaxConns:      4,
		RunMigrations: true,
	}, logger)
	require.NoError(s.T(), err)

	s.repo = NewPlanRepository(pool, logger)
	s.closeFn = pool.Close
}

func (s *PlanRepositoryTestSuite) TearDownSuite() {
	if s.closeFn != nil {
		s.closeFn()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PlanRepositoryTestSuite) record(userID string, createdAt time.Time) *mealplan.PlanRecord {
	plan := mealplan.DefaultPlan(createdAt)
	plan.ID = uuid.New()
	return &mealplan.PlanRecord{
		UserID:              userID,
		Query:               "3 day vegan plan",
		DietaryRestrictions: []string{"vegan"},
		MealPlanID:          plan.ID,
		Strategy:            plan.Strategy,
		Plan:                plan,
		CreatedAt:           createdAt.UTC().Truncate(time.Microsecond),
	}
}

func (s *PlanRepositoryTestSuite) TestSaveAndFind() {
	ctx := context.Background()
	rec := s.record("user-find", time.Now())

	s.Require().NoError(s.repo.Save(ctx, rec))

	found, err := s.repo.FindByMealPlanID(ctx, rec.MealPlanID)
	s.Require().NoError(err)
	s.Equal(rec.UserID, found.UserID)
	s.Equal([]string{"vegan"}, found.DietaryRestrictions)
	s.Equal([]string{}, found.Preferences)
	s.Len(found.Plan.Days, 3)
	s.Equal(rec.Plan.Summary, found.Plan.Summary)
}

func (s *PlanRepositoryTestSuite) TestFindMissing() {
	_, err := s.repo.FindByMealPlanID(context.Background(), uuid.New())
	s.ErrorIs(err, outbound.ErrPlanNotFound)
}

func (s *PlanRepositoryTestSuite) TestListByUserNewestFirst() {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	older := s.record("user-list", base)
	newer := s.record("user-list", base.Add(30*time.Minute))
	s.Require().NoError(s.repo.Save(ctx, older))
	s.Require().NoError(s.repo.Save(ctx, newer))
	s.Require().NoError(s.repo.Save(ctx, s.record("someone-else", base)))

	records, err := s.repo.ListByUser(ctx, "user-list", 10)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(newer.MealPlanID, records[0].MealPlanID)

	limited, err := s.repo.ListByUser(ctx, "user-list", 1)
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func TestPlanRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(PlanRepositoryTestSuite))
}
