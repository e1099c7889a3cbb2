package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Storage errors
	ErrKeyNotFound = errors.New("key not found")
	ErrEmptyUserID = errors.New("user id required for scoped storage")

	// Verification errors
	ErrValidation         = errors.New("validation failed")
	ErrCodeNotFound       = errors.New("verification code not found")
	ErrCodeSpaceExhausted = errors.New("no free verification code values for farmer")

	// Session errors
	ErrNotSignedIn        = errors.New("no user signed in")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountDeleted     = errors.New("account has been deleted")

	// Farm flow errors
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrInsufficientCredits     = errors.New("not enough eco-credits")
	ErrRewardNotFound          = errors.New("reward not found")
	ErrRewardUnavailable       = errors.New("reward is not available")
	ErrUnknownWasteType        = errors.New("unknown waste type")
)

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
