package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrRevisionConflict means the document on disk changed since it was loaded
	ErrRevisionConflict = errors.New("metadata document was modified by another session")
	// ErrInvalidKind is returned when reclassifying to anything but TABLE or VIEW
	ErrInvalidKind = errors.New("objects can only be reclassified as TABLE or VIEW")
)

// CorruptError reports a persisted metadata document that cannot be parsed.
// The document is never repaired by discarding its content.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("metadata document %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// WriteError reports a failed save. In-memory edits are kept and the save
// can be retried.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to save metadata to %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
