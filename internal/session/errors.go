package session

import "errors"

var (
	ErrUnknownObject     = errors.New("object not found in schema")
	ErrUnknownColumn     = errors.New("column not found in object")
	ErrUnsavedChanges    = errors.New("session has unsaved metadata changes")
	ErrNotReclassifiable = errors.New("only objects filed under UNKNOWN can be reclassified")
	ErrNoSource          = errors.New("no database connection configured")
	ErrNoProvider        = errors.New("no AI provider configured")
)
