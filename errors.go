package goSession

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthenticationRejected is returned (wrapped in [RejectedError]) when the
	// authentication endpoint answers a login, signup or profile call with a
	// non-success status.
	ErrAuthenticationRejected = errors.New("authentication rejected")
	// ErrMissingToken is returned when a successful login response carries no
	// token. It is never reported as a rejection.
	ErrMissingToken = errors.New("login response missing token")
	// ErrSessionExpired matches a rejection of an authenticated call, meaning the
	// credential it carried is no longer accepted.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotStarted is returned by operations invoked before Start.
	ErrNotStarted = errors.New("session authority not started")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("session authority already started")
	// ErrSuperseded matches any late result discarded because a Logout or forced
	// expiry happened while the call was in flight.
	ErrSuperseded = errors.New("superseded by logout")
	// ErrLoginSuperseded is returned by a Login that lost to a Logout.
	ErrLoginSuperseded = fmt.Errorf("login %w", ErrSuperseded)
	// ErrRefreshSuperseded is returned by a Refresh that lost to a Logout.
	ErrRefreshSuperseded = fmt.Errorf("profile refresh %w", ErrSuperseded)
	// ErrNotAuthenticated is returned by operations that need a live session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidInput wraps form validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEndpointNotConfigured is returned when no [Endpoint] was supplied.
	ErrEndpointNotConfigured = errors.New("authentication endpoint not configured")
	// ErrEmptyProfile is returned when a profile refresh answers without a user ID.
	ErrEmptyProfile = errors.New("profile response missing user id")
)

// RejectedError is a non-success answer from the authentication endpoint. Status
// is 0 when the endpoint could not be reached.
type RejectedError struct {
	Status  int
	Message string
	// SessionExpired marks a 401 on a call that carried the credential.
	SessionExpired bool
	Err            error
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status == 0 {
		return "authentication endpoint unreachable"
	}
	return "authentication rejected: " + http.StatusText(e.Status)
}

func (e *RejectedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuthenticationRejected}
	}
	return []error{ErrAuthenticationRejected, e.Err}
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrSessionExpired && e.SessionExpired
}

// RejectionMessage returns the user-facing message carried by err, or fallback
// when err is not a [RejectedError].
func RejectionMessage(err error, fallback string) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	return fallback
}
