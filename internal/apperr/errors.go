// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidCPF    = errors.New("invalid cpf")
	ErrNoRecords     = errors.New("no records")

	// ErrUnreadableFile marks an import whose file could not be parsed.
	ErrUnreadableFile = errors.New("unreadable file")
)
