package models

import "errors"

// Sentinel errors shared between stores and handlers. Callers match these
// with errors.Is.
var (
	// Store-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Auth errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)
