package referral

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned, wrapped with the offending field, when an
// operation is called with arguments that would never be accepted by the API.
// No request is sent in that case.
var ErrInvalidInput = errors.New("invalid input")

func required(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
}

func invalid(field string, value any) error {
	return fmt.Errorf("%w: invalid %s %q", ErrInvalidInput, field, fmt.Sprint(value))
}

// EventError reports a failed event within a batch.
type EventError struct {
	Index        int
	ReferralCode string
	Err          error
}

// Error implements the error interface
func (e EventError) Error() string {
	return fmt.Sprintf("event %d (referral code %s): %v", e.Index, e.ReferralCode, e.Err)
}

// Unwrap returns the underlying error.
func (e EventError) Unwrap() error {
	return e.Err
}
