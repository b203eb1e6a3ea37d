package models

import (
	"errors"
	"strings"
)

// Error taxonomy shared by stores, services and the HTTP boundary.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrUpstream        = errors.New("upstream failure")
)

// ValidationError lists the problems with a request payload. It matches ErrInvalidInput.
type ValidationError struct {
	Problems []string
}

// Invalid returns a ValidationError for problems.
func Invalid(problems ...string) error {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
