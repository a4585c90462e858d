package entity

import "errors"

// Engine error taxonomy. All are surfaced synchronously to the caller; none
// are retried by the engine. Callers distinguish them with errors.Is.
var (
	// ErrValidation is returned for malformed input, rejected before any
	// state mutation
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for an unknown requisition, step, rule or
	// attachment id
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized is returned when the actor lacks the required role or
	// does not match the step's specific assignee
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotPending is returned when a step has already been decided. It is
	// also the signal the loser of a concurrent decide race observes.
	ErrNotPending = errors.New("step is not pending")

	// ErrStepsExist is returned when step creation is attempted on a
	// requisition that already has steps
	ErrStepsExist = errors.New("requisition already has approval steps")

	// ErrStepOutOfOrder is returned when a decision targets a pending step
	// that is not the lowest-position pending step
	ErrStepOutOfOrder = errors.New("step is not the next pending step")

	// ErrVersionConflict is returned when an optimistic version check fails
	// because a concurrent transition committed first
	ErrVersionConflict = errors.New("requisition version conflict")
)
