package slab

import "fmt"

// FormatError reports a buffer whose length or tag bytes do not match
// the account layout. The buffer comes from an untrusted source, so
// this is a normal runtime error, never a panic.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "slab: bad format: " + e.Reason
}

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// CorruptionError reports a tree whose child indices cycle or point
// outside the arena. The buffer is unusable; retrying against it
// cannot succeed.
type CorruptionError struct {
	Steps int
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("slab: corrupt tree: descent aborted after %d steps", e.Steps)
}
