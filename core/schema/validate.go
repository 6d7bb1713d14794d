package schema

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
)

// ValidatorFunc checks a field value. A failure is reported as an error whose
// message describes the problem to the API client. rec holds the other fields being written.
type ValidatorFunc func(value interface{}, rec Record) error

var validate *validator.Validate

func init() {
	validate, _ = core.NewValidator()
}

// Rule returns a ValidatorFunc enforcing a go-playground/validator tag (e.g. "email", "min=8").
func Rule(tag, message string) ValidatorFunc {
	return func(value interface{}, _ Record) error {
		if err := validate.Var(value, tag); err != nil {
			return errors.New(message)
		}
		return nil
	}
}

func missingFieldError(f Field) core.FieldError {
	return core.FieldError{Field: f.Name, Error: fmt.Sprintf("Missing required field %s.", f.Name)}
}

func invalidValueError(f Field) core.FieldError {
	return core.FieldError{Field: f.Name, Error: fmt.Sprintf("Invalid value for %s.", f.Name)}
}

func invalidTypeError(f Field) core.FieldError {
	return core.FieldError{Field: f.Name, Error: fmt.Sprintf("Invalid type for %s, expected %s.", f.Name, f.Type)}
}

// ErrNoValidFields is the message of an update carrying no writable field.
const ErrNoValidFields = "No valid fields."

// Validate checks rec against the schema and reports every problem at once:
//   - with requireAll, each required field without a default must be present;
//   - each present field must have the right type and pass its validators;
//   - enumerated fields must hold one of their allowed values.
//
// Without requireAll, an empty record is itself an error.
func Validate(s *Schema, rec Record, requireAll bool) error {
	var errs []core.FieldError

	if !requireAll && len(rec) == 0 {
		return core.NewValidationError(nil, core.FieldError{Error: ErrNoValidFields})
	}

	for _, f := range s.fields {
		v, present := rec[f.Column]
		if requireAll && f.IsRequired() && (!present || v == nil) {
			errs = append(errs, missingFieldError(*f))
			continue
		}
		if !present {
			continue
		}

		if v == nil {
			if !f.Nullable {
				errs = append(errs, invalidValueError(*f))
			}
			continue
		}
		if !accepts(f.Type, v) {
			errs = append(errs, invalidTypeError(*f))
			continue
		}

		for _, fn := range f.Validators {
			if err := fn(v, rec); err != nil {
				errs = append(errs, core.FieldError{Field: f.Name, Error: err.Error()})
			}
		}

		if !f.allows(v) {
			errs = append(errs, invalidValueError(*f))
		}
	}

	if len(errs) > 0 {
		return core.NewValidationError(nil, errs...)
	}
	return nil
}
