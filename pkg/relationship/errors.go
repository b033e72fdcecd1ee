package relationship

import "errors"

var (
	// ErrInvalidEvent marks an interaction event that failed validation.
	// No state is mutated when it is returned.
	ErrInvalidEvent = errors.New("invalid interaction event")

	// ErrPairNotFound means no state exists for the pair and auto-creation
	// is disabled. The caller decides whether to create.
	ErrPairNotFound = errors.New("relationship pair not found")

	// ErrVersionConflict means an optimistic-version mismatch on save. The
	// caller must reload and replay the whole event application; nothing is
	// partially applied.
	ErrVersionConflict = errors.New("concurrent modification conflict")
)
