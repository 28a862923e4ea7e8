package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/ports/inbound"
	apperrors "github.com/alchemorsel/mealplanner/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

// MockMealPlanService is a mock implementation of inbound.MealPlanService
type MockMealPlanService struct {
	mock.Mock
}

func (m *MockMealPlanService) GenerateFromQuery(ctx context.Context, req inbound.QueryRequest) (*mealplan.MealPlan, error) {
	args := m.Called(ctx, req)
	plan, _ := args.Get(0).(*mealplan.MealPlan)
	return plan, args.Error(1)
}

func (m *MockMealPlanService) Generate(ctx context.Context, c mealplan.GenerationConstraints) *mealplan.MealPlan {
	args := m.Called(ctx, c)
	return args.Get(0).(*mealplan.MealPlan)
}

func (m *MockMealPlanService) History(ctx context.Context, userID string, limit int) ([]*mealplan.PlanRecord, error) {
	args := m.Called(ctx, userID, limit)
	records, _ := args.Get(0).([]*mealplan.PlanRecord)
	return records, args.Error(1)
}

type MealPlanHandlersTestSuite struct {
	suite.Suite
	service *MockMealPlanService
	router  chi.Router
}

func TestMealPlanHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(MealPlanHandlersTestSuite))
}

func (suite *MealPlanHandlersTestSuite) SetupTest() {
	suite.service = &MockMealPlanService{}
	suite.router = chi.NewRouter()
	suite.router.Route("/api/v1/meal-plans", NewMealPlanHandlers(suite.service, zaptest.NewLogger(suite.T())).Routes)
}

func (suite *MealPlanHandlersTestSuite) TearDownTest() {
	suite.service.AssertExpectations(suite.T())
}

func (suite *MealPlanHandlersTestSuite) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	suite.router.ServeHTTP(rec, req)
	return rec
}

func (suite *MealPlanHandlersTestSuite) errorCode(rec *httptest.ResponseRecorder) apperrors.ErrorCode {
	var body apperrors.ErrorResponse
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func samplePlan() *mealplan.MealPlan {
	plan := mealplan.DefaultPlan(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	plan.ID = uuid.New()
	return &plan
}

func (suite *MealPlanHandlersTestSuite) TestGenerateFromQuery() {
	plan := samplePlan()
	suite.service.On("GenerateFromQuery", mock.Anything, inbound.QueryRequest{
		Query:  "3-day vegan plan",
		UserID: "u-1",
		Mode:   "hybrid",
	}).Return(plan, nil)

	rec := suite.do(http.MethodPost, "/api/v1/meal-plans", QueryPlanRequest{Query: "3-day vegan plan", UserID: "u-1", Mode: "hybrid"})

	require.Equal(suite.T(), http.StatusOK, rec.Code)
	var body struct {
		Success bool              `json:"success"`
		Data    mealplan.MealPlan `json:"data"`
	}
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(suite.T(), body.Success)
	assert.Equal(suite.T(), plan.ID, body.Data.ID)
	assert.Len(suite.T(), body.Data.Days, plan.DurationDays)
}

func (suite *MealPlanHandlersTestSuite) TestGenerateFromQuery_InvalidBodies() {
	tests := []struct {
		name string
		body interface{}
	}{
		{name: "malformed json", body: `{"query":`},
		{name: "unknown field", body: `{"query":"plan","days":3}`},
		{name: "missing query", body: QueryPlanRequest{UserID: "u-1"}},
		{name: "unknown mode", body: QueryPlanRequest{Query: "plan", Mode: "quantum"}},
		{name: "script in query", body: QueryPlanRequest{Query: "<script>alert(1)</script>"}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			rec := suite.do(http.MethodPost, "/api/v1/meal-plans", tt.body)
			assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
		})
	}
	suite.service.AssertNotCalled(suite.T(), "GenerateFromQuery", mock.Anything, mock.Anything)
}

func (suite *MealPlanHandlersTestSuite) TestGenerateFromQuery_ServiceValidationError() {
	suite.service.On("GenerateFromQuery", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewValidationError("query is empty"))

	rec := suite.do(http.MethodPost, "/api/v1/meal-plans", QueryPlanRequest{Query: "   "})

	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(suite.T(), apperrors.CodeValidationFailed, suite.errorCode(rec))
}

func (suite *MealPlanHandlersTestSuite) TestGenerateStructured() {
	prep := 30
	plan := samplePlan()
	suite.service.On("Generate", mock.Anything, mealplan.GenerationConstraints{
		DurationDays:        2,
		MealTypes:           []mealplan.MealType{mealplan.MealTypeBreakfast, mealplan.MealTypeDinner},
		DietaryRestrictions: []string{"vegan"},
		Exclusions:          []string{"mushrooms"},
		PrepTimeMax:         &prep,
		Mode:                mealplan.ModeRetrievalAugmented,
	}).Return(plan)

	rec := suite.do(http.MethodPost, "/api/v1/meal-plans/structured", StructuredPlanRequest{
		DurationDays:        2,
		MealTypes:           []string{"breakfast", "Dinner"},
		DietaryRestrictions: []string{"vegan"},
		Exclusions:          []string{"mushrooms"},
		PrepTimeMax:         &prep,
		Mode:                "rag",
	})

	assert.Equal(suite.T(), http.StatusOK, rec.Code)
}

func (suite *MealPlanHandlersTestSuite) TestGenerateStructured_Invalid() {
	tests := []struct {
		name string
		req  StructuredPlanRequest
	}{
		{name: "negative duration", req: StructuredPlanRequest{DurationDays: -1}},
		{name: "unknown meal type", req: StructuredPlanRequest{MealTypes: []string{"elevenses"}}},
		{name: "too many meal types", req: StructuredPlanRequest{MealTypes: []string{"breakfast", "lunch", "dinner", "snack", "snack"}}},
		{name: "unknown mode", req: StructuredPlanRequest{Mode: "quantum"}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			rec := suite.do(http.MethodPost, "/api/v1/meal-plans/structured", tt.req)
			assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
			assert.Equal(suite.T(), apperrors.CodeValidationFailed, suite.errorCode(rec))
		})
	}
}

func (suite *MealPlanHandlersTestSuite) TestHistory() {
	records := []*mealplan.PlanRecord{{ID: uuid.New(), UserID: "u-1", Strategy: "direct"}}
	suite.service.On("History", mock.Anything, "u-1", 5).Return(records, nil)
	suite.service.On("History", mock.Anything, "u-2", 0).Return([]*mealplan.PlanRecord{}, nil)

	rec := suite.do(http.MethodGet, "/api/v1/meal-plans/history/u-1?limit=5", nil)
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	var body struct {
		Data []mealplan.PlanRecord `json:"data"`
	}
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(suite.T(), body.Data, 1)
	assert.Equal(suite.T(), records[0].ID, body.Data[0].ID)

	rec = suite.do(http.MethodGet, "/api/v1/meal-plans/history/u-2", nil)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
}

func (suite *MealPlanHandlersTestSuite) TestHistory_BadLimit() {
	for _, limit := range []string{"abc", "0", "101"} {
		rec := suite.do(http.MethodGet, "/api/v1/meal-plans/history/u-1?limit="+limit, nil)
		assert.Equal(suite.T(), http.StatusBadRequest, rec.Code, limit)
	}
}

func (suite *MealPlanHandlersTestSuite) TestHistory_DatabaseError() {
	suite.service.On("History", mock.Anything, "u-1", 0).
		Return(nil, apperrors.NewDatabaseError("list plan history", assert.AnError))

	rec := suite.do(http.MethodGet, "/api/v1/meal-plans/history/u-1", nil)

	assert.Equal(suite.T(), http.StatusInternalServerError, rec.Code)
	assert.Equal(suite.T(), apperrors.CodeDatabaseError, suite.errorCode(rec))
}

func (suite *MealPlanHandlersTestSuite) TestHistory_UnexpectedError() {
	suite.service.On("History", mock.Anything, "u-1", 0).Return(nil, assert.AnError)

	rec := suite.do(http.MethodGet, "/api/v1/meal-plans/history/u-1", nil)

	assert.Equal(suite.T(), http.StatusInternalServerError, rec.Code)
	assert.Equal(suite.T(), apperrors.CodeInternal, suite.errorCode(rec))
}
