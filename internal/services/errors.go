// Package services defines the business logic for drops: creation with
// per-kind validation, keyed retrieval with lazy expiry, reply threading,
// and optional cleanup of expired documents.
// This file centralizes service-level error values so that handlers can map
// them to HTTP results consistently.
package services

import "errors"

var (
	// ErrValidation marks caller-correctable input problems. Concrete
	// failures are *ValidationError values that unwrap to it.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates no drop with the given id exists for the kind.
	ErrNotFound = errors.New("not found")

	// ErrExpired indicates the drop exists but its time-to-live has elapsed.
	// Handlers report it exactly like ErrNotFound.
	ErrExpired = errors.New("drop expired")

	// ErrAccessDenied is returned when the drop is key-protected and the
	// supplied key is missing or wrong.
	ErrAccessDenied = errors.New("access denied")

	// ErrUnknownKind is returned for a kind outside note/link/code/file.
	ErrUnknownKind = errors.New("unknown drop kind")
)

// ValidationError describes one invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
