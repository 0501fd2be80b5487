package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultAuthErrorMessage is shown when the auth API gives no reason for a failed login
const DefaultAuthErrorMessage = "Authentication failed"

// DefaultSignupErrorMessage is shown when the auth API gives no reason for a failed signup
const DefaultSignupErrorMessage = "Registration failed"

// ErrEnvelopeNotFound is returned by backends when nothing is stored for a key
var ErrEnvelopeNotFound = errors.New("credential envelope not found")

// ErrNoSession is the error when a visitor has no stored session
var ErrNoSession = errors.New("no session")

// ErrCorruptSession is returned when stored session data can not be decoded
var ErrCorruptSession = errors.New("unable to decode session")

// ErrMissingVisitor is returned when a request carries no visitor cookie
var ErrMissingVisitor = errors.New("missing visitor id")

// ErrFormLocked is returned while the login form is locked after repeated failures
var ErrFormLocked = errors.New("too many failed attempts, try again later")

// ErrInvalidCredentials is the simulated failed login signal
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrRefreshFailed is returned when the auth API does not mint a new token
var ErrRefreshFailed = errors.New("token refresh failed")

// AuthenticationError carries the user facing message of a failed
// login or signup.
type AuthenticationError struct {
	Message string
	Status  int
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// IsAuthenticationError will check for login/signup rejections
func IsAuthenticationError(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// UserMessage returns the text we can show for err
func UserMessage(err error, fallback string) string {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return fallback
}

// ValidationErrors maps form fields to their error message
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return strings.Join(parts, "; ")
}

// IsValidationError will check for form validation failures
func IsValidationError(err error) bool {
	var verr ValidationErrors
	return errors.As(err, &verr)
}

// ErrMissingManager is returned when HTTP helpers are built without a Manager
var ErrMissingManager = errors.New("missing session manager")
