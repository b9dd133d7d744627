package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation matches any *ValidationError via errors.Is
var ErrValidation = errors.New("validation failed")

// FieldError describes why one field value was rejected
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e FieldError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// FieldErrors collects every failing field of one row or header
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, e := range fe {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// ValidationError reports a row that does not satisfy an entity shape.
// Row is the 1-based data row; 0 refers to the header.
type ValidationError struct {
	Row    int
	Errors FieldErrors
}

// NewValidationError wraps field errors with the row they came from.
// A plain error is recorded against the given field.
func NewValidationError(row int, field string, err error) *ValidationError {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return &ValidationError{Row: row, Errors: fe}
	}
	return &ValidationError{Row: row, Errors: FieldErrors{{Field: field, Reason: err.Error()}}}
}

func (e *ValidationError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("invalid header: %s", e.Errors.Error())
	}
	return fmt.Sprintf("invalid row %d: %s", e.Row, e.Errors.Error())
}

// Is matches ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Fields returns the names of the failing fields
func (e *ValidationError) Fields() []string {
	names := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		names[i] = fe.Field
	}
	return names
}
