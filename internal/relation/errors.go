// Package relation holds the generic building blocks of the chat domain model:
// identity registries, bidirectional links and qualified (keyed) collections.
// Nothing in here knows about users or chats.
package relation

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrNotFound          = errors.New("not found")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrMinimumViolation  = errors.New("minimum cardinality violated")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnauthorized      = errors.New("unauthorized")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrValidation, "validation"},
	{ErrDuplicateKey, "duplicate_key"},
	{ErrNotFound, "not_found"},
	{ErrCapacityExceeded, "capacity_exceeded"},
	{ErrMinimumViolation, "minimum_violation"},
	{ErrInvalidState, "invalid_state"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrUnauthorized, "unauthorized"},
}

// Kind returns the taxonomy name of err ("duplicate_key", "not_found", ...),
// "internal" for errors outside the taxonomy and "" for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
