package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateSubmission is returned by CreateApplication when the
	// idempotency key was already consumed by an earlier submit.
	ErrDuplicateSubmission = errors.New("application already submitted")

	// ErrAlreadyProcessed is returned by DecideApplication when the row was
	// decided by a concurrent reviewer (0 rows updated).
	ErrAlreadyProcessed = errors.New("application already processed")
)
