package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with the library's custom rules
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents one invalid field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

// Error lists the invalid fields; callers add the "validation failed" prefix
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "invalid request"
	}
	parts := make([]string, 0, len(ve))
	for _, e := range ve {
		parts = append(parts, e.Field+" "+e.Message)
	}
	return strings.Join(parts, "; ")
}

// New creates a validator with every custom rule registered
func New() *Validator {
	validate := validator.New()

	// Report json names so messages match the request body
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerBusinessRules()

	return v
}

// Validate checks a struct and returns ValidationErrors, or nil when valid
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ToValidationErrors converts validator output into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	result := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		result = append(result, ValidationError{
			Field:   fe.Field(),
			Message: getErrorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return result
}

// getErrorMessage returns user-friendly error messages
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", err.Param())
		}
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", err.Param())
		}
		return fmt.Sprintf("must be at most %s", err.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", err.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", err.Param())
	case "email":
		return "must be a valid email address"
	case "eqfield":
		return fmt.Sprintf("must match %s", err.Param())
	case "dive":
		return "contains an invalid item"
	case "rating_value":
		return "must be between 0 and 5"
	case "user_role":
		return "must be a valid user role"
	case "reservation_status":
		return "must be one of approved, rejected, returned"
	case "due_date":
		return "must be a date in YYYY-MM-DD format"
	case "isbn":
		return "must be a valid ISBN-10 or ISBN-13"
	case "not_blank":
		return "must not be blank"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
