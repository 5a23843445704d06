package custom_errors

import "errors"

var (
	// ErrValidation marks malformed or missing required input.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a job or player that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a durable store that is unreachable or rejected a write.
	ErrPersistence = errors.New("persistence error")

	// ErrInvalidStateTransition marks a job state machine violation.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrQueueUnavailable marks job store infrastructure that is unreachable.
	ErrQueueUnavailable = errors.New("queue unavailable")
)
