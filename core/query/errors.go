package query

import (
	"errors"
	"fmt"
)

// Error kinds reported by the builder. They are returned wrapped, so callers
// should compare with errors.Is.
var (
	ErrUndeclaredVariable = errors.New("undeclared variable")
	ErrNoActiveSelector   = errors.New("you need to select something before you can apply functions")
	ErrInvalidCondition   = errors.New("invalid query condition")
	ErrMissingTimeRange   = errors.New("query time range is incomplete")
	ErrMissingCollection  = errors.New("query has no collection")
	ErrInvalidTime        = errors.New("invalid time value")
)

// UndeclaredVariableError is returned when a function argument references a
// variable that has no entry in the variable table at render time.
type UndeclaredVariableError struct {
	Name string
}

// Error returns the error message for an UndeclaredVariableError.
func (e *UndeclaredVariableError) Error() string {
	return fmt.Sprintf("variable %s was not declared", e.Name)
}

// Unwrap allows errors.Is(err, ErrUndeclaredVariable).
func (e *UndeclaredVariableError) Unwrap() error {
	return ErrUndeclaredVariable
}
