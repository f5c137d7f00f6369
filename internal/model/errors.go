package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData marks a series shorter than a computation needs.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrProviderFailure marks a fetch or transport failure for one symbol.
	ErrProviderFailure = errors.New("provider failure")
	// ErrInvalidConfig marks out-of-range or contradictory parameters.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError describes one rejected parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
