package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/library-service/internal/validator"
)

// ===== SENTINEL ERRORS =====

var (
	// Not found
	ErrBookNotFound        = errors.New("book not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrFileNotFound        = errors.New("file not found")
	ErrRatingNotFound      = errors.New("rating not found")

	// Validation
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidFile      = errors.New("invalid file")
	ErrFileTooLarge     = errors.New("file too large")

	// Authorization
	ErrForbidden          = errors.New("forbidden")
	ErrSelfModification   = errors.New("cannot modify your own account")
	ErrAdminDemotion      = errors.New("admin accounts cannot be demoted")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// Availability conflicts
	ErrBookNotAvailable     = errors.New("book not available")
	ErrDuplicateReservation = errors.New("an active reservation for this book already exists")

	// State conflicts
	ErrInvalidTransition     = errors.New("invalid reservation status transition")
	ErrReservationNotPending = errors.New("only pending reservations can be cancelled")
	ErrActiveReservations    = errors.New("active reservations exist")
	ErrEmailTaken            = errors.New("email already registered")
	ErrCategoryTaken         = errors.New("category name already exists")
)

// ValidationError and ValidationErrors are shared with the validator package
type ValidationError = validator.ValidationError
type ValidationErrors = validator.ValidationErrors

// PermissionError reports a failed role or ownership check
type PermissionError struct {
	UserID     string
	ResourceID interface{}
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID interface{}, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %v: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

// Is lets errors.Is(err, ErrForbidden) match permission errors
func (e *PermissionError) Is(target error) bool {
	return target == ErrForbidden
}

// TransitionError reports a rejected reservation status change
type TransitionError struct {
	Detail *ValidationError
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidTransition, e.Detail.Message)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// BusinessRuleError reports a violated domain rule
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}
