package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by an operator action wraps exactly one of these.
var (
	ErrValidation      = errors.New("validation")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrWrongState      = errors.New("wrong state")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Operation-specific errors, each wrapping one kind above.
var (
	ErrBlocked   = fmt.Errorf("%w: pallet is blocked", ErrWrongState)
	ErrLockHeld  = fmt.Errorf("%w: pallet is in use by another operator", ErrConflict)
	ErrEmpty     = fmt.Errorf("%w: container has no lines", ErrWrongState)
	ErrExhausted = fmt.Errorf("%w: container code generation retries exhausted", ErrConflict)
	ErrNoDemand  = fmt.Errorf("%w: no pending demand for sku on this pallet", ErrNotFound)
	ErrComplete  = fmt.Errorf("%w: demand line is already complete", ErrValidation)
)

// Kind returns the taxonomy sentinel err belongs to, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrWrongState, ErrUnauthenticated} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Errorf builds an error of the given kind with a formatted detail message.
func Errorf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// RequireActor fails with ErrUnauthenticated when no actor is attached to the call.
func RequireActor(actor string) error {
	if actor == "" {
		return ErrUnauthenticated
	}
	return nil
}
