package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound           = errors.New("resource not found")
	ErrPredictionNotFound = fmt.Errorf("%w: prediction", ErrNotFound)
	ErrDraftNotFound      = fmt.Errorf("%w: draft", ErrNotFound)
	ErrGridNotFound       = fmt.Errorf("%w: grid", ErrNotFound)

	// Validation errors
	ErrInvalidInput       = errors.New("invalid statistical input")
	ErrInvalidProportion  = fmt.Errorf("%w: proportion outside [0,1]", ErrInvalidInput)
	ErrInvalidResolution  = errors.New("unsupported grid resolution")
	ErrUpgradeWithoutEvidence = errors.New("credential upgrade without new evidence")
	ErrInsufficientData   = errors.New("insufficient data for analysis")

	// Concurrency errors
	ErrConflict = errors.New("concurrent update conflict")
)

// NewNotFoundError builds a not-found error with resource context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewInvalidInputError builds an invalid-input error with field context
func NewInvalidInputError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

// IsNotFoundError checks if an error is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInputError checks if an error is an invalid-input error
func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConflictError checks if an error is a concurrent-update conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}
