package domain

import "errors"

// Sentinel errors for the application. Handlers map these to HTTP status
// codes and machine-readable kinds; services wrap them with context.
var (
	ErrUnauthenticated = errors.New("missing or invalid credentials")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("operation conflicts with current state")
	ErrValidation      = errors.New("invalid input")
	ErrDependency      = errors.New("dependency failure")
)
