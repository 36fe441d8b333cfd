// Package errs defines the error kinds shared by the identity services.
// Packages declare their own sentinels wrapping one of these kinds so callers
// can match either the specific error or its kind with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrEntityNotFound        = errors.New("entity not found")
	ErrBusinessRuleViolation = errors.New("business rule violation")
	ErrInvalidOperation      = errors.New("invalid operation")
)

// New returns a sentinel error of the given kind with msg as its text.
func New(kind error, msg string) error {
	return fmt.Errorf("%w: %s", kind, msg)
}
