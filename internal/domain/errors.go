package domain

import "errors"

// Precondition violations. They never mutate state.
var (
	ErrAlreadyClockedIn = errors.New("already clocked in")
	ErrNoActiveSession  = errors.New("no active session")
	ErrNoPausedSession  = errors.New("no paused session")
	ErrReasonRequired   = errors.New("pause reason is required")
)

var (
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	// ErrNotConfigured is returned by integrations that are switched off.
	ErrNotConfigured = errors.New("integration not configured")
)

// IsPrecondition reports whether err is one of the clock precondition errors.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrAlreadyClockedIn) ||
		errors.Is(err, ErrNoActiveSession) ||
		errors.Is(err, ErrNoPausedSession) ||
		errors.Is(err, ErrReasonRequired)
}
