package model

import "errors"

// ErrNotFound is returned by stores when the requested row does not exist.
// Callers match it with errors.Is since repositories wrap it with context.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key.
var ErrDuplicate = errors.New("duplicate")
