package mealplan

import "fmt"

// SlotStatus tracks a single meal slot through generation
type SlotStatus string

const (
	SlotStatusRequested           SlotStatus = "requested"
	SlotStatusLLMCallIssued       SlotStatus = "llm_call_issued"
	SlotStatusParsed              SlotStatus = "parsed"
	SlotStatusParseFailed         SlotStatus = "parse_failed"
	SlotStatusValidated           SlotStatus = "validated"
	SlotStatusNutritionCorrected  SlotStatus = "nutrition_corrected"
	SlotStatusRecorded            SlotStatus = "recorded"
	SlotStatusFallbackSubstituted SlotStatus = "fallback_substituted"
)

var slotTransitions = map[SlotStatus][]SlotStatus{
	SlotStatusRequested:          {SlotStatusLLMCallIssued, SlotStatusFallbackSubstituted},
	SlotStatusLLMCallIssued:      {SlotStatusParsed, SlotStatusParseFailed},
	SlotStatusParsed:             {SlotStatusValidated, SlotStatusNutritionCorrected, SlotStatusFallbackSubstituted},
	SlotStatusParseFailed:        {SlotStatusFallbackSubstituted},
	SlotStatusValidated:          {SlotStatusRecorded, SlotStatusFallbackSubstituted},
	SlotStatusNutritionCorrected: {SlotStatusRecorded, SlotStatusFallbackSubstituted},
}

// IsTerminal reports whether no further transitions are possible
func (s SlotStatus) IsTerminal() bool {
	return s == SlotStatusRecorded || s == SlotStatusFallbackSubstituted
}

// CanTransitionTo reports whether next is a legal successor of s
func (s SlotStatus) CanTransitionTo(next SlotStatus) bool {
	for _, allowed := range slotTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Slot is the generation state of one meal within a day
type Slot struct {
	DayIndex int
	MealType MealType
	status   SlotStatus
	history  []SlotStatus
}

// NewSlot creates a slot in the Requested state
func NewSlot(dayIndex int, mealType MealType) *Slot {
	return &Slot{
		DayIndex: dayIndex,
		MealType: mealType,
		status:   SlotStatusRequested,
		history:  []SlotStatus{SlotStatusRequested},
	}
}

// Status returns the current state
func (s *Slot) Status() SlotStatus {
	return s.status
}

// History returns every state the slot has passed through
func (s *Slot) History() []SlotStatus {
	return append([]SlotStatus(nil), s.history...)
}

// Transition moves the slot to next, rejecting illegal moves
func (s *Slot) Transition(next SlotStatus) error {
	if !s.status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, next)
	}
	s.status = next
	s.history = append(s.history, next)
	return nil
}

// Substitute moves the slot to FallbackSubstituted from any non-terminal state
func (s *Slot) Substitute() {
	if s.status.IsTerminal() {
		return
	}
	s.status = SlotStatusFallbackSubstituted
	s.history = append(s.history, SlotStatusFallbackSubstituted)
}
