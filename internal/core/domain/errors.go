package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication covers bad credentials as well as expired or invalid
	// bearer tokens. Callers never learn which factor failed.
	ErrAuthentication = errors.New("authentication failed")

	ErrUserNotFound      = errors.New("user not found")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	ErrCSRFValidation    = errors.New("csrf validation failed")
	ErrCSRFTokenMissing  = fmt.Errorf("%w: token missing", ErrCSRFValidation)
	ErrCSRFTokenMismatch = fmt.Errorf("%w: token mismatch", ErrCSRFValidation)

	ErrAuthorizationDenied     = errors.New("authorization denied")
	ErrPolicyEngineUnavailable = errors.New("policy engine unavailable")
	ErrInputValidation         = errors.New("input validation failed")
	ErrUnexpected              = errors.New("unexpected server error")
)

// ValidationError carries a message that is safe to show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is(err, ErrInputValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}
