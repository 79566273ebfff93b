package validator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/SAP-F-2025/library-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format of due dates
const DateLayout = "2006-01-02"

// allowedTransitions is the reservation state machine
var allowedTransitions = map[models.ReservationStatus][]models.ReservationStatus{
	models.ReservationPending:  {models.ReservationApproved, models.ReservationRejected},
	models.ReservationApproved: {models.ReservationReturned},
	models.ReservationRejected: {}, // terminal
	models.ReservationReturned: {}, // terminal
}

// CanTransition reports whether a reservation may move from current to next
func CanTransition(current, next models.ReservationStatus) bool {
	for _, allowed := range allowedTransitions[current] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateStatusTransition validates reservation status transitions
func ValidateStatusTransition(current, next models.ReservationStatus) *ValidationError {
	if CanTransition(current, next) {
		return nil
	}
	return &ValidationError{
		Field:   "status",
		Message: fmt.Sprintf("cannot transition from %s to %s", current, next),
		Value:   next,
		Rule:    "status_transition",
	}
}

// ParseDueDate parses a YYYY-MM-DD date in UTC
func ParseDueDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}

// registerBusinessRules registers custom business rule validators
func (v *Validator) registerBusinessRules() {
	// Rating in [0, 5]; storage rounds to one decimal
	v.validate.RegisterValidation("rating_value", func(fl validator.FieldLevel) bool {
		value := fl.Field().Float()
		return !math.IsNaN(value) && value >= models.MinRating && value <= models.MaxRating
	})

	// Role names, including the "user" alias
	v.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseRole(fl.Field().String())
		return ok
	})

	// Statuses staff may set; pending is only ever the initial state
	v.validate.RegisterValidation("reservation_status", func(fl validator.FieldLevel) bool {
		switch models.ReservationStatus(fl.Field().String()) {
		case models.ReservationApproved, models.ReservationRejected, models.ReservationReturned:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("due_date", func(fl validator.FieldLevel) bool {
		_, err := ParseDueDate(fl.Field().String())
		return err == nil
	})

	// An empty isbn is allowed so partial updates can clear it
	v.validate.RegisterValidation("isbn", func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		return value == "" || IsValidISBN(value)
	})

	v.validate.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// IsValidISBN accepts the ISBN-10 or ISBN-13 shape with optional hyphens or
// spaces. Check digits are not verified, so catalogued legacy numbers pass.
func IsValidISBN(value string) bool {
	digits := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(value))

	switch len(digits) {
	case 10, 13:
	default:
		return false
	}
	for i, r := range digits {
		switch {
		case r >= '0' && r <= '9':
		case (r == 'X' || r == 'x') && len(digits) == 10 && i == 9:
		default:
			return false
		}
	}
	return true
}
