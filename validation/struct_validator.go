package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/kbukum/kbuild/errors"
)

var (
	validate *validator.Validate
	once     sync.Once

	identifierRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their yaml key, which is what users edit.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return toSnakeCase(fld.Name)
			}
			return name
		})

		_ = validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
			return identifierRe.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate validates a struct using struct tags.
// Uses tags like `validate:"required,identifier,min=1"`.
func Validate(s any) error {
	v := getValidator()
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))

	for _, e := range validationErrors {
		fieldName := fieldPath(e.Namespace())
		message := formatValidationError(e)
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fieldName,
			Message: message,
		})
		messages = append(messages, fieldName+": "+message)
	}

	appErr := errors.Validation(strings.Join(messages, "; "))
	appErr.Details = map[string]any{
		"fields": fieldErrors,
	}

	return appErr
}

// fieldPath drops the root struct name from a validator namespace
// ("Project.libraries[0].name" -> "libraries[0].name").
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.Slice || e.Kind() == reflect.Map {
			return "must have at least " + e.Param() + " entries"
		}
		if e.Kind() == reflect.String {
			return "must be at least " + e.Param() + " characters"
		}
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	case "identifier":
		return "must start with a letter or digit and contain only letters, digits, '.', '_' or '-'"
	case "dive":
		return "contains an invalid entry"
	default:
		return "is invalid"
	}
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32) // lowercase
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
