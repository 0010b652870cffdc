package paywall

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("paywall: not found")
	ErrAlreadyExists = errors.New("paywall: already exists")
	ErrInvalidInput  = errors.New("paywall: invalid input")
	ErrUnauthorized  = errors.New("paywall: unauthorized")

	// Content errors. Each matches ErrNotFound under errors.Is.
	ErrContentNotFound = fmt.Errorf("%w: content", ErrNotFound)
	ErrCustodyAbsent   = fmt.Errorf("%w: custody token not held on this domain", ErrNotFound)
	ErrGrantNotFound   = fmt.Errorf("%w: subscription grant", ErrNotFound)

	// ErrIDSpaceExhausted means this domain's id space has no ids left.
	ErrIDSpaceExhausted = errors.New("paywall: content id space exhausted")

	// Payment errors
	ErrInsufficientFunds = errors.New("paywall: insufficient funds")
	ErrPaymentFailed     = errors.New("paywall: payment failed")

	// Concurrency errors
	ErrReentrancyRejected = errors.New("paywall: re-entrant call rejected")

	// Migration errors
	ErrMigrationReceiptInvalid = errors.New("paywall: migration receipt invalid")
	ErrTransportFailed         = errors.New("paywall: receipt transport failed")
	ErrNoTransport             = errors.New("paywall: no transport configured")

	// Store errors
	ErrStoreClosed = errors.New("paywall: store is closed")
)

// ValidationError represents a validation failure with details.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("paywall: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermanent reports whether retrying the same call can never succeed:
// the input was rejected rather than the system failing.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrMigrationReceiptInvalid) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrIDSpaceExhausted)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
// The ledger itself never retries.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPaymentFailed) ||
		errors.Is(err, ErrTransportFailed)
}
