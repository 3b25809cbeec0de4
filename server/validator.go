package server

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator adapts go-playground/validator to echo's Validator interface.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the standard rules.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate checks the struct tags on i and flattens the first failure into a
// readable error.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return fmt.Errorf("field %s failed on the %q rule", first.Field(), first.Tag())
	}
	return err
}
