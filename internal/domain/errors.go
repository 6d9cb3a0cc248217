package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when no assessment session exists for the user and quiz.
	ErrSessionNotFound = errors.New("assessment session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuiz indicates a quiz definition violates its structural invariants.
	ErrInvalidQuiz = errors.New("invalid quiz definition")
	// ErrInvalidInput is returned for out-of-range option indexes or navigation targets.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotInProgress is returned when an operation needs a running session.
	ErrNotInProgress = errors.New("assessment is not in progress")
	// ErrAlreadySubmitted is returned when starting a session that was already submitted.
	ErrAlreadySubmitted = errors.New("assessment already submitted")
	// ErrSubmissionPending is returned while a submission is still being recorded.
	ErrSubmissionPending = errors.New("submission is still being recorded")
	// ErrCertificateNotFound is returned when a verification code matches no certificate.
	ErrCertificateNotFound = errors.New("certificate not found")
)

// PersistenceError means a computed result could not be durably recorded.
// It is never a statement about whether the user passed.
type PersistenceError struct {
	Op     string
	UserID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s for user %s: %v", e.Op, e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RenderingError means the certificate artifact could not be produced.
// The certificate record itself stays valid and can be rendered again later.
type RenderingError struct {
	CertificateID string
	Err           error
}

func (e *RenderingError) Error() string {
	return fmt.Sprintf("render certificate %s: %v", e.CertificateID, e.Err)
}

func (e *RenderingError) Unwrap() error { return e.Err }

// IsPersistenceFailure reports whether err carries a PersistenceError.
func IsPersistenceFailure(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
