// Package handlers provides HTTP handlers for the meal plan REST API
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	"github.com/alchemorsel/mealplanner/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/mealplanner/internal/ports/inbound"
	apperrors "github.com/alchemorsel/mealplanner/pkg/errors"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// QueryPlanRequest is the body of POST /api/v1/meal-plans
type QueryPlanRequest struct {
	Query  string `json:"query" validate:"required,max=2000,no_xss"`
	UserID string `json:"user_id" validate:"omitempty,max=128"`
	Mode   string `json:"mode" validate:"omitempty,mode"`
}

// StructuredPlanRequest is the body of POST /api/v1/meal-plans/structured
type StructuredPlanRequest struct {
	DurationDays        int      `json:"duration_days" validate:"gte=0,lte=31"`
	MealTypes           []string `json:"meal_types" validate:"omitempty,max=4,dive,meal_type"`
	DietaryRestrictions []string `json:"dietary_restrictions" validate:"omitempty,max=20,dive,max=50,no_xss"`
	Preferences         []string `json:"preferences" validate:"omitempty,max=20,dive,max=50,no_xss"`
	SpecialRequirements []string `json:"special_requirements" validate:"omitempty,max=20,dive,max=50,no_xss"`
	Exclusions          []string `json:"exclusions" validate:"omitempty,max=20,dive,max=50,no_xss"`
	PrepTimeMax         *int     `json:"prep_time_max" validate:"omitempty,gte=5,lte=480"`
	Mode                string   `json:"mode" validate:"omitempty,mode"`
}

// Constraints converts the validated request into generation constraints
func (r StructuredPlanRequest) Constraints() mealplan.GenerationConstraints {
	c := mealplan.GenerationConstraints{
		DurationDays:        r.DurationDays,
		DietaryRestrictions: r.DietaryRestrictions,
		Preferences:         r.Preferences,
		SpecialRequirements: r.SpecialRequirements,
		Exclusions:          r.Exclusions,
		PrepTimeMax:         r.PrepTimeMax,
	}
	for _, s := range r.MealTypes {
		if mt, err := mealplan.ParseMealType(s); err == nil {
			c.MealTypes = append(c.MealTypes, mt)
		}
	}
	if r.Mode != "" {
		c.Mode, _ = mealplan.ParseMode(r.Mode)
	}
	return c
}

// MealPlanHandlers handles the meal plan endpoints
type MealPlanHandlers struct {
	service  inbound.MealPlanService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewMealPlanHandlers creates the meal plan handlers
func NewMealPlanHandlers(service inbound.MealPlanService, logger *zap.Logger) *MealPlanHandlers {
	return &MealPlanHandlers{
		service:  service,
		validate: newValidator(),
		logger:   logger.Named("mealplan-api"),
	}
}

// Routes mounts the meal plan endpoints
func (h *MealPlanHandlers) Routes(r chi.Router) {
	r.Post("/", h.GenerateFromQuery)
	r.Post("/structured", h.GenerateStructured)
	r.Get("/history/{userID}", h.History)
}

// GenerateFromQuery handles POST /api/v1/meal-plans
func (h *MealPlanHandlers) GenerateFromQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryPlanRequest
	if !h.decode(w, r, &req) {
		return
	}

	plan, err := h.service.GenerateFromQuery(r.Context(), inbound.QueryRequest{
		Query:  req.Query,
		UserID: req.UserID,
		Mode:   req.Mode,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    plan,
		Message: "Meal plan generated successfully",
	})
}

// GenerateStructured handles POST /api/v1/meal-plans/structured
func (h *MealPlanHandlers) GenerateStructured(w http.ResponseWriter, r *http.Request) {
	var req StructuredPlanRequest
	if !h.decode(w, r, &req) {
		return
	}

	plan := h.service.Generate(r.Context(), req.Constraints())

	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    plan,
		Message: "Meal plan generated successfully",
	})
}

// History handles GET /api/v1/meal-plans/history/{userID}
func (h *MealPlanHandlers) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			middleware.WriteError(w, r, apperrors.NewValidationError("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	records, err := h.service.History(r.Context(), userID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    records,
		Message: "Meal plan history retrieved successfully",
	})
}

// decode reads and validates a JSON body, writing the error response on failure
func (h *MealPlanHandlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		middleware.WriteError(w, r, apperrors.NewBadRequestError("Invalid JSON body").WithCause(err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		middleware.WriteError(w, r, toAppError(err))
		return false
	}
	return true
}

func (h *MealPlanHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewInternalError("")
	}
	if appErr.StatusCode() >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	middleware.WriteError(w, r, appErr)
}

func (h *MealPlanHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}
