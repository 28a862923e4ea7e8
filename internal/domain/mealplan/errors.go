package mealplan

import "errors"

// Domain errors for meal plan operations

var (
	// Record validation errors
	ErrUnknownMealType   = errors.New("unknown meal type")
	ErrEmptyRecipeName   = errors.New("recipe name must not be empty")
	ErrNoIngredients     = errors.New("meal must have at least one ingredient")
	ErrNoInstructions    = errors.New("meal must have instructions")
	ErrPrepTimeTooShort  = errors.New("preparation time must be at least 10 minutes")
	ErrNegativeNutrition = errors.New("nutrition values must not be negative")
	ErrUnknownProvenance = errors.New("unknown provenance")

	// Generation errors
	ErrUnknownMode       = errors.New("unknown generation mode")
	ErrEmptyResponse     = errors.New("generator returned an empty response")
	ErrMissingSlot       = errors.New("response did not contain a meal for the slot")
	ErrDuplicateRecipe   = errors.New("recipe name already used in this plan")
	ErrNoCandidates      = errors.New("no recipe candidates available")
	ErrInvalidTransition = errors.New("invalid slot status transition")

	// Request errors
	ErrEmptyQuery = errors.New("query cannot be empty")
)
