package validation

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "roster/pkg/domain-errors"
)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("integer", func(fl validator.FieldLevel) bool {
		return IsInteger(fl.Field().String())
	})
	// Fields tagged env:"NAME" report under that name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("env"), ",")
		return name
	})
	return v
}

// IsInteger holds when the trimmed value is a base-10 integer of any size with
// an optional sign. Partial parses such as "20 2" or "20O" do not hold.
func IsInteger(value string) bool {
	s := strings.TrimSpace(value)
	if s == "" {
		return false
	}
	_, ok := new(big.Int).SetString(s, 10)
	return ok
}

// Validate validates a struct using the default validator and returns a domain error
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, ErrorMessage(err))
	}
	return nil
}

// ValidateAll is Validate reporting every failing field, joined.
func ValidateAll(req any) error {
	err := defaultValidator.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return dErrors.New(dErrors.CodeInvalidInput, ErrorMessage(err))
	}
	errs := make([]error, 0, len(validationErrs))
	for _, fe := range validationErrs {
		errs = append(errs, dErrors.New(dErrors.CodeInvalidInput, fieldMessage(fe)))
	}
	return errors.Join(errs...)
}

// Var checks a single value against tag.
func Var(value any, tag string) bool {
	return defaultValidator.Var(value, tag) == nil
}

// ErrorMessage converts a validator error into a human-readable message
func ErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}
	return fieldMessage(validationErrs[0])
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	if field == fe.StructField() {
		field = toSnakeCase(field)
	}

	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "integer":
		return fmt.Sprintf("%s must be an integer", field)
	default:
		if field == "" {
			return "invalid request body"
		}
		return fmt.Sprintf("%s is invalid", field)
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
