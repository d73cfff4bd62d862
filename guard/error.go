// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package guard

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrMissingToken     = errors.New("No authorization token was found")
	ErrMalformedHeader  = errors.New("Format is Authorization: Bearer [token]")
	ErrInvalidToken     = errors.New("invalid token")
)

// InvalidTokenMessage is the "error" value of every rejection.
const InvalidTokenMessage = "Invalid token"

// AuthError is the reason a request was rejected. It is written to the
// client as JSON.
type AuthError struct {
	Message string `json:"error"`
	Details string `json:"details"`

	err error
}

// newAuthError returns an AuthError whose details are the message of err.
func newAuthError(err error) *AuthError {
	return &AuthError{
		Message: InvalidTokenMessage,
		Details: err.Error(),
		err:     err,
	}
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Details)
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error { return e.err }
