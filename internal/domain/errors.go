package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalid           = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrHoldExpired       = errors.New("reservation hold expired")
	ErrSoldOut           = errors.New("departure sold out")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	// ErrConfirmationRequired guards destructive admin actions on other
	// users' data until the caller repeats them with confirm=true.
	ErrConfirmationRequired = errors.New("confirmation required")
)
