// Package validation checks a raw source file against the fixed user schema.
//
// A source file is exactly two rows: the header [first_name, last_name, birthts]
// and one value row. Checks run in order and the first failure wins:
// row count, header, column count, then one named rule per column left to right.
// Nothing here performs I/O.
package validation

import (
	"fmt"
	"strings"

	"roster/internal/users/models"
	dErrors "roster/pkg/domain-errors"
	vld "roster/pkg/validation"
)

// Field names of the source schema, in header order.
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldBirthTS   = "birthts"
)

// Header is the required header row after trimming each field.
var Header = []string{FieldFirstName, FieldLastName, FieldBirthTS}

// Rule binds a column to the validator tag its value must satisfy.
type Rule struct {
	Field string
	Tag   string
}

// Rules are evaluated left to right; index i applies to column i.
var Rules = []Rule{
	{Field: FieldFirstName, Tag: "notblank"},
	{Field: FieldLastName, Tag: "notblank"},
	{Field: FieldBirthTS, Tag: "integer"},
}

// FieldError identifies the column that failed its rule. It is carried as the
// cause of a field_condition_violation domain error.
type FieldError struct {
	Field string
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("The value %s does not follow %s's condition", e.Value, e.Field)
}

// ValidateRows checks header and value rows and returns the value row as read.
// Values keep their surrounding whitespace.
func ValidateRows(rows [][]string) (models.Record, error) {
	if len(rows) != 2 {
		return models.Record{}, dErrors.New(dErrors.CodeMalformedShape,
			fmt.Sprintf("The file contains %d rows, expected 2", len(rows)))
	}
	header, values := rows[0], rows[1]

	if !ValidHeader(header) {
		return models.Record{}, dErrors.New(dErrors.CodeSchemaMismatch,
			fmt.Sprintf("The headers %q do not match the required headers %q", header, Header))
	}
	if len(values) != len(header) {
		return models.Record{}, dErrors.New(dErrors.CodeColumnCountMismatch,
			fmt.Sprintf("The values row has %d columns, the header has %d", len(values), len(header)))
	}
	if err := CheckValues(values); err != nil {
		return models.Record{}, err
	}

	return models.Record{
		FirstName: values[0],
		LastName:  values[1],
		BirthTS:   values[2],
	}, nil
}

// ValidHeader reports whether header, each field trimmed, equals Header exactly.
func ValidHeader(header []string) bool {
	if len(header) != len(Header) {
		return false
	}
	for i, h := range header {
		if strings.TrimSpace(h) != Header[i] {
			return false
		}
	}
	return true
}

// CheckValues applies Rules to values. values must have one entry per rule.
func CheckValues(values []string) error {
	if len(values) != len(Rules) {
		return dErrors.New(dErrors.CodeColumnCountMismatch,
			fmt.Sprintf("The values row has %d columns, expected %d", len(values), len(Rules)))
	}
	for i, rule := range Rules {
		if !vld.Var(values[i], rule.Tag) {
			fe := &FieldError{Field: rule.Field, Value: values[i]}
			return &dErrors.Error{Code: dErrors.CodeFieldConditionViolation, Message: fe.Error(), Err: fe}
		}
	}
	return nil
}

// Validate parses a raw source file and validates it.
func Validate(data []byte) (models.Record, error) {
	rows, err := ParseCSV(data)
	if err != nil {
		return models.Record{}, err
	}
	return ValidateRows(rows)
}
