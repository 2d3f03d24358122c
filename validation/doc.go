// Package validation validates kbuild configuration and project manifests.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Both report failures as
// errors.AppError with the offending fields in Details["fields"].
//
// # Struct Tag Validation
//
//	type Library struct {
//	    Name    string   `yaml:"name" validate:"required,identifier"`
//	    Sources []string `yaml:"sources" validate:"required,min=1"`
//	}
//	err := validation.Validate(lib)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("name", name).Unique("outputs", out)
//	err := v.Validate()
package validation
