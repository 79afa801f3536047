package offer

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("invalid offer")

	// ErrNotFound is returned by Session.Get for unknown ids.
	ErrNotFound = errors.New("offer not found")

	// Source errors
	ErrTransient = errors.New("transient source error")
	ErrPermanent = errors.New("permanent source error")
)

// ValidationError reports the first negative numeric field of an offer.
type ValidationError struct {
	OfferID string
	Field   string
	Value   float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("offer %q: %s must be non-negative, got %v", e.OfferID, e.Field, e.Value)
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Transient wraps err as a retryable source error.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Permanent wraps err as a non-retryable source error.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsTransient checks if the error is retryable
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent checks if the error must not be retried
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
