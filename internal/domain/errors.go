package domain

import (
	"errors"
	"fmt"
)

// Error classes. Callers classify with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrMessageNotFound  = errors.New("message not found")
	ErrAlreadyProcessed = errors.New("message already processed")
	ErrFeatureDisabled  = errors.New("supervisor approval is not enabled")
	ErrDelivery         = errors.New("delivery failed")
	ErrConfiguration    = errors.New("delivery is not configured")
)

// ValidationError is a caller-fixable input failure. Reason is surfaced verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrMissingFields   = &ValidationError{Reason: "missing required fields"}
	ErrInvalidCategory = &ValidationError{Reason: "invalid category"}
	ErrInvalidAction   = &ValidationError{Reason: "invalid action"}
	ErrInvalidID       = &ValidationError{Reason: "invalid message id"}
	ErrInvalidStatus   = &ValidationError{Reason: "invalid status"}
)

// WrapDelivery marks err as a delivery failure. Configuration errors keep
// their own class.
func WrapDelivery(err error) error {
	if err == nil {
		return ErrDelivery
	}
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrDelivery) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDelivery, err)
}
