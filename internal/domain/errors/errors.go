package errors

import "errors"

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrBudgetExceeded     = errors.New("budget exceeded")
	ErrNoWorker           = errors.New("no worker registered")
	ErrUnknownGigType     = errors.New("unknown gig type")
	ErrInvalidStatus      = errors.New("invalid status")
)
