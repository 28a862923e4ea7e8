package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alchemorsel/mealplanner/internal/domain/mealplan"
	apperrors "github.com/alchemorsel/mealplanner/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// newValidator registers the meal plan specific rules
func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("meal_type", validateMealType)
	_ = validate.RegisterValidation("mode", validateMode)
	_ = validate.RegisterValidation("no_xss", validateNoXSS)
	return validate
}

func validateMealType(fl validator.FieldLevel) bool {
	_, err := mealplan.ParseMealType(fl.Field().String())
	return err == nil
}

func validateMode(fl validator.FieldLevel) bool {
	_, err := mealplan.ParseMode(fl.Field().String())
	return err == nil
}

// validateNoXSS rejects markup and script fragments in free text
func validateNoXSS(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())

	xssPatterns := []string{
		"<script", "</script>", "javascript:", "vbscript:",
		"onload=", "onerror=", "onclick=", "onmouseover=",
		"document.cookie", "document.write", "window.location",
	}
	for _, pattern := range xssPatterns {
		if strings.Contains(value, pattern) {
			return false
		}
	}
	return true
}

// toAppError converts validator output into the API validation error
func toAppError(err error) *apperrors.AppError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewValidationError(err.Error())
	}

	out := make([]apperrors.ValidationError, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Field()
		var msg string
		switch e.Tag() {
		case "required":
			msg = fmt.Sprintf("%s is required", field)
		case "min", "gte":
			msg = fmt.Sprintf("%s must be at least %s", field, e.Param())
		case "max", "lte":
			msg = fmt.Sprintf("%s must be at most %s", field, e.Param())
		case "meal_type":
			msg = fmt.Sprintf("%s must be one of breakfast, lunch, dinner, snack", field)
		case "mode":
			msg = fmt.Sprintf("%s must be one of direct, retrieval_augmented, hybrid, bulk", field)
		case "no_xss":
			msg = fmt.Sprintf("%s contains unsafe content", field)
		default:
			msg = fmt.Sprintf("%s is invalid", field)
		}
		out = append(out, apperrors.ValidationError{
			Field:   field,
			Value:   e.Value(),
			Tag:     e.Tag(),
			Message: msg,
		})
	}
	return apperrors.NewValidationErrors(out)
}
