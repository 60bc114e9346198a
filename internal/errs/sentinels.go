// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested case or user does not exist or is not live.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates an unrecognized status, operation, or filter condition.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict indicates a concurrent modification lost the race
	// (status changed between read and conditional update, duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates malformed filter or mutation input.
	ErrValidation = errors.New("validation")

	// ErrRateLimited indicates a temporary submission block due to burst limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized indicates missing identity or insufficient staff rights.
	ErrUnauthorized = errors.New("unauthorized")
)
