package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when the actor lacks privilege for a command,
	// e.g. a player issuing a host-only transition.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition is returned when a command is not valid in the
	// session's current phase.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrDuplicateAnswer is returned when a participant already answered the
	// question; the first submission wins and is never overwritten.
	ErrDuplicateAnswer = errors.New("answer already submitted")
	// ErrStaleQuestion is returned when a submission targets a question index
	// the session has moved past.
	ErrStaleQuestion = errors.New("question no longer active")
	// ErrSessionEnded is returned when joining a finished session.
	ErrSessionEnded = errors.New("session has ended")
	// ErrNotFound indicates an unknown session, join code, or participant.
	ErrNotFound = errors.New("not found")
	// ErrValidation is the sentinel wrapped by ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is surfaced when a guarded state-machine write loses its
	// version check after bounded retries.
	ErrConflict = errors.New("concurrent modification conflict")
)

// ValidationError reports a malformed quiz definition or answer payload.
// It wraps ErrValidation so callers can match with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
