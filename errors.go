package napstore

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("napstore: not found")
	ErrAlreadyExists = errors.New("napstore: already exists")
	ErrInvalidInput  = errors.New("napstore: invalid input")
	ErrUnauthorized  = errors.New("napstore: unauthorized")
	ErrForbidden     = errors.New("napstore: forbidden")
	ErrRateLimited   = errors.New("napstore: rate limited")

	// User errors
	ErrUserNotFound        = errors.New("napstore: user not found")
	ErrUserExists          = errors.New("napstore: user already exists")
	ErrInsufficientBalance = errors.New("napstore: insufficient balance")

	// Deposit errors
	ErrDepositNotFound    = errors.New("napstore: deposit not found")
	ErrDepositNotPending  = errors.New("napstore: deposit is not pending")
	ErrAmountBelowMinimum = errors.New("napstore: amount below minimum deposit")
	ErrTooManyPending     = errors.New("napstore: too many pending deposits")
	ErrOrderIDTaken       = errors.New("napstore: order id already taken")
	ErrNoOrderID          = errors.New("napstore: no order id in transfer content")

	// License errors
	ErrLicenseNotFound = errors.New("napstore: license not found")
	ErrLicenseRevoked  = errors.New("napstore: license is revoked")
	ErrLicenseExpired  = errors.New("napstore: license is expired")
	ErrInvalidHWID     = errors.New("napstore: invalid hardware id")
	ErrHWIDInUse       = errors.New("napstore: hardware id bound to another license")
	ErrHWIDReused      = errors.New("napstore: hardware id previously bound to another account")
	ErrNotRenewable    = errors.New("napstore: license plan is not renewable")

	// Catalog errors
	ErrProductNotFound = errors.New("napstore: product not found")
	ErrPlanNotFound    = errors.New("napstore: plan not found")

	// Usage errors
	ErrUsageBufferFull = errors.New("napstore: usage buffer full")

	// Store errors
	ErrStoreNotReady     = errors.New("napstore: store not ready")
	ErrStoreClosed       = errors.New("napstore: store is closed")
	ErrTransactionFailed = errors.New("napstore: transaction failed")
	ErrMigrationFailed   = errors.New("napstore: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("napstore: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "napstore: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("napstore: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrDepositNotFound) ||
		errors.Is(err, ErrLicenseNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrPlanNotFound)
}

// IsConflict returns true if the error indicates a state conflict that
// should not be retried as-is.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrDepositNotPending) ||
		errors.Is(err, ErrOrderIDTaken) ||
		errors.Is(err, ErrHWIDInUse) ||
		errors.Is(err, ErrHWIDReused)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUsageBufferFull) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
