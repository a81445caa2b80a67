package domain

import "errors"

// Sentinel errors for the domain layer - match with errors.Is().
// Services wrap these with context (fmt.Errorf("...: %w", ErrNotFound));
// the handler layer maps them to HTTP status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrUpstream     = errors.New("upstream provider error")
)
