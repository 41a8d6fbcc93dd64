package storage

import "errors"

var (
	// ErrUnavailable means the backing medium cannot be used at all. For the
	// capacity tier it is terminal for the lifetime of the process.
	ErrUnavailable = errors.New("storage: unavailable")

	// ErrFull means a write did not fit even after local recovery.
	ErrFull = errors.New("storage: full")

	// ErrCorrupt marks a stored record that failed to decode. It never leaves
	// a store; corrupt records are deleted and reported as misses.
	ErrCorrupt = errors.New("storage: corrupt entry")
)
