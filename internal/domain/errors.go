// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the backend refused a change because of the current
// state of the resource (for example deleting the active composition).
var ErrConflict = errors.New("conflict")

// ErrValidation indicates the caller supplied invalid input.
var ErrValidation = errors.New("validation failed")

// ErrProtected indicates an attempt to delete a system entity or the active
// composition.
var ErrProtected = errors.New("protected")

// ErrUnavailable indicates the prompt backend could not be reached.
var ErrUnavailable = errors.New("backend unavailable")
