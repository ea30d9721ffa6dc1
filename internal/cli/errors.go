package cli

import "errors"

// CLI-specific sentinel errors.
var (
	// ErrFileNotFound indicates the specified caption file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidTarget indicates a target duration below one second.
	ErrInvalidTarget = errors.New("target duration must be at least 1s")

	// ErrRunIncomplete indicates the run finished but some jobs or chunks did not.
	ErrRunIncomplete = errors.New("run finished with failures")
)
