package repository

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	// ErrNotFound indicates the source file does not exist or is not a regular file.
	ErrNotFound = errors.New("file not found")

	// ErrIO indicates a read or write failure unrelated to existence.
	ErrIO = errors.New("i/o failure")
)

// NotFoundError is returned when a source path does not name a regular file
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s file not found.", e.Path)
}

// Is matches ErrNotFound and fs.ErrNotExist
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == fs.ErrNotExist
}

// IOError wraps an underlying read or write failure
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is matches ErrIO
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}
