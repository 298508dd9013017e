package upload

import (
	"errors"
	"fmt"
)

var (
	ErrNoSource      = errors.New("exactly one of filePath or fileUrl is required, got neither")
	ErrBothSources   = errors.New("exactly one of filePath or fileUrl is required, got both")
	ErrInvalidURL    = errors.New("fileUrl must be an absolute http(s) url")
	ErrNotRegular    = errors.New("not a regular file")
	ErrEmptyContent  = errors.New("empty content and no detectable type")
	ErrExceedsMemory = errors.New("file larger than available memory")
)

// ValidationError marks a malformed request. It is recorded against that request
// only and never reaches the network.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "validation: " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) *ValidationError { return &ValidationError{Err: err} }

// TransientIOError is a network, filesystem or backend failure for one request.
// It is not retried.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Err) }

func (e *TransientIOError) Unwrap() error { return e.Err }

func transient(op string, err error) *TransientIOError { return &TransientIOError{Op: op, Err: err} }
