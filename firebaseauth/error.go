package firebaseauth

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrNilParameter      = errors.New("nil parameter")
	ErrInvalidCACert     = errors.New("invalid CA certificate")
	ErrIDGeneratorFailed = errors.New("id generation failed")
	ErrSessionRequired   = errors.New("authentication requires session support")
	ErrIdentityMismatch  = errors.New("incorrect provider project id")
)

// AuthorizationError represents an authorization failure reported by the
// identity provider on the callback leg.  See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthorizationError struct {
	// Code is the provider's error code (for example "server_error")
	Code string

	// Description is the provider's human-readable description of the failure
	Description string

	// URI optionally identifies a page with more diagnostic information
	URI string
}

// Error implements the error interface.
func (e *AuthorizationError) Error() string {
	switch {
	case e.Description != "":
		return fmt.Sprintf("authorization failed: %s (%s)", e.Description, e.Code)
	default:
		return fmt.Sprintf("authorization failed: %s", e.Code)
	}
}

// TokenError represents a failure to verify an inbound identity token.  It
// wraps the verifier's underlying cause.
type TokenError struct {
	// Msg describes the verification step that failed
	Msg string

	// Err is the underlying cause
	Err error
}

// Error implements the error interface.
func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.Err.Error())
	}
	return e.Msg
}

// Unwrap returns the underlying cause, which makes TokenError compatible with
// errors.Is/errors.As inspection.
func (e *TokenError) Unwrap() error {
	return e.Err
}
