package schema

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an object is not part of the schema
var ErrNotFound = errors.New("object not found in schema")

// LoadError reports a malformed or missing technical schema document.
// It is fatal to session start.
type LoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	msg := "failed to load schema"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
