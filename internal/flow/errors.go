// ABOUTME: Flow-level errors and conversion of client errors to user messages
// ABOUTME: Messages from the services are surfaced verbatim

package flow

import (
	"errors"

	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/session"
)

var (
	// ErrAttemptPending is returned when a step is submitted while the previous one is in flight.
	ErrAttemptPending = errors.New("previous step still in progress")

	// ErrWrongStep is returned when an operation does not apply to the current state.
	ErrWrongStep = errors.New("not available at this step")
)

// Describe converts an error into a message fit for the user
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var validation *client.ValidationError
	if errors.As(err, &validation) {
		return validation.Error()
	}

	var rejected *client.RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}

	switch {
	case errors.Is(err, ErrAttemptPending):
		return "Wait for the previous step to finish."
	case errors.Is(err, session.ErrExpired):
		return "Your session has expired. Sign in again."
	case errors.Is(err, client.ErrUnauthorized):
		return "You are not signed in, or your session is no longer valid."
	case errors.Is(err, client.ErrConflict):
		return "That device is already registered."
	case errors.Is(err, client.ErrUnreachable):
		return "Cannot reach the service. Check your connection and try again."
	}
	return err.Error()
}
