package wt

import "errors"

var (
	// ErrConfiguration means storage is not usable as configured: no namespace
	// (bucket), or encryption enabled without keys or an unlocked key.
	// Raised by the first storage operation, not at startup.
	ErrConfiguration = errors.New("storage namespace is not configured")

	// ErrStorageUnavailable wraps any backend failure on save, enumerate or delete.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrValidation marks form input that cannot be turned into an entry.
	ErrValidation = errors.New("invalid measurement")

	// ErrSubmitInProgress is returned when a session submits while its previous
	// submission has not finished.
	ErrSubmitInProgress = errors.New("a submission is already in progress")

	// ErrDeleteInProgress is returned when a delete for the same id is already in flight.
	ErrDeleteInProgress = errors.New("delete already in progress for this entry")

	// ErrNotConfirmed is returned when a delete is requested without confirmation.
	ErrNotConfirmed = errors.New("delete requires confirmation")
)
