package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not legal from the
	// current state; the wrapped message names the attempted transition
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not a valid workflow state
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every candidate transition's guard
	// condition rejects the trigger
	ErrGuardFailed = errors.New("guard condition failed")
)
