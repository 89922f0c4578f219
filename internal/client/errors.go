// ABOUTME: Error taxonomy shared by every blackbox service call
// ABOUTME: Separates client-side validation, auth, connectivity and server rejections

package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means there is no usable session or a service refused the token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnreachable means the request never got a response.
	ErrUnreachable = errors.New("service unreachable")

	// ErrConflict is returned when registration collides with an existing resource.
	ErrConflict = errors.New("conflict")
)

// ValidationError is raised before any network call when input is malformed
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RejectedError is a non-2xx response carrying a message from the server
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return e.Message
}

// Is lets 401/403 and 409 rejections match the sentinel errors
func (e *RejectedError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == 401 || e.StatusCode == 403
	case ErrConflict:
		return e.StatusCode == 409
	}
	return false
}

// Validation builds a ValidationError
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a client-side validation failure
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
