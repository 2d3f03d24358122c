package validation

import (
	"fmt"
	"strings"

	"github.com/kbukum/kbuild/errors"
)

// Validator collects validation errors.
type Validator struct {
	errors []FieldError
	seen   map[string]map[string]bool
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{
		errors: make([]FieldError, 0),
		seen:   make(map[string]map[string]bool),
	}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an AppError if there are validation errors, nil otherwise.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}

	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}

	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{
		"fields": v.errors,
	}

	return appErr
}

// Required checks if a string is non-empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// Min checks if a number meets minimum value.
func (v *Validator) Min(field string, value, minVal int) *Validator {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("must be at least %d", minVal))
	}
	return v
}

// OneOf checks if a value is one of the allowed values.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Unique records value under the named set and fails if it was seen before.
func (v *Validator) Unique(set, field, value string) *Validator {
	values, ok := v.seen[set]
	if !ok {
		values = make(map[string]bool)
		v.seen[set] = values
	}
	if values[value] {
		v.AddError(field, fmt.Sprintf("duplicate %s %q", set, value))
		return v
	}
	values[value] = true
	return v
}

// Custom applies a custom validation condition.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}

// Required validates a single required field and returns an error if empty.
func Required(field, value string) error {
	v := New().Required(field, value)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
