package pipeline

import (
	"errors"
	"fmt"

	"hireflow/pipeline-service/internal/domain"
)

// Error codes exposed to callers (bulk failure entries, HTTP bodies).
const (
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeStaleTransition   = "STALE_TRANSITION"
	CodeValidation        = "VALIDATION"
	CodePersistence       = "PERSISTENCE"
)

// NotFoundError is returned when a candidate is missing or soft-deleted.
type NotFoundError struct {
	CandidateID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("candidate %s not found", e.CandidateID)
}

// Code returns the stable error code for this failure kind.
func (e *NotFoundError) Code() string { return CodeNotFound }

// InvalidTransitionError is returned when the state machine rejects a
// requested stage change. It carries both stages so callers can act.
type InvalidTransitionError struct {
	From domain.Stage
	To   domain.Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %s → %s is not allowed", e.From, e.To)
}

func (e *InvalidTransitionError) Code() string { return CodeInvalidTransition }

// StaleTransitionError is returned when a concurrent transition changed the
// candidate's stage between the validating read and the conditional write.
// Recoverable: re-read the candidate and retry if the intent still applies.
type StaleTransitionError struct {
	CandidateID string
	Expected    domain.Stage
}

func (e *StaleTransitionError) Error() string {
	return fmt.Sprintf("candidate %s is no longer in stage %s", e.CandidateID, e.Expected)
}

func (e *StaleTransitionError) Code() string { return CodeStaleTransition }

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Code() string { return CodeValidation }

// PersistenceError wraps a storage-layer failure. Always retryable: the
// conditional update either fully applied or not at all.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Code() string { return CodePersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

// coder is implemented by every error kind above.
type coder interface{ Code() string }

// ErrorCode maps err to its stable code. Unrecognized errors are reported as
// persistence failures, the only kind with an unknown cause.
func ErrorCode(err error) string {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodePersistence
}
