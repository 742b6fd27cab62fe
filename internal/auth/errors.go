package auth

import (
	"errors"
	"fmt"
)

// Common authentication errors.
var (
	// ErrNoCredentials indicates that no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates that the provided credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnknownUser indicates that the user is not present in the store.
	ErrUnknownUser = errors.New("unknown user")

	// ErrInvalidToken indicates that a token is malformed or fails verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates that a token has expired.
	ErrTokenExpired = errors.New("token expired")
)

// AuthError wraps an authentication failure with the method that produced it.
type AuthError struct {
	// Err is the underlying error.
	Err error

	// Method is the authentication method that failed.
	Method string
}

// Error returns the error message.
func (e *AuthError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("%s authentication failed: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// WrapAuthError wraps an error with the authentication method.
func WrapAuthError(err error, method string) error {
	if err == nil {
		return nil
	}
	return &AuthError{Err: err, Method: method}
}

// IsNoCredentials checks if an error indicates missing credentials.
func IsNoCredentials(err error) bool {
	return errors.Is(err, ErrNoCredentials)
}
