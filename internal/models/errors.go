package models

import "errors"

// Common errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a resource already exists (e.g., duplicate name)
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrNoFieldsToUpdate is returned when no fields are provided for an update
	ErrNoFieldsToUpdate = errors.New("no fields to update")

	// ErrInvalidUUID is returned when a UUID is invalid
	ErrInvalidUUID = errors.New("invalid UUID")

	// ErrInvalidTarget is returned when a dispatch request names an empty or
	// disabled platform set. The job is never created.
	ErrInvalidTarget = errors.New("invalid dispatch target")

	// ErrDuplicateResult is returned when a second result is recorded for the
	// same (job, platform) pair. The first result is never overwritten.
	ErrDuplicateResult = errors.New("result already recorded for platform")

	// ErrJobCompleted is returned when a result or cancellation arrives after
	// the job reached its terminal state.
	ErrJobCompleted = errors.New("job already completed")

	// ErrInvalidPrice is returned when a price is zero or negative
	ErrInvalidPrice = errors.New("price must be positive")
)
