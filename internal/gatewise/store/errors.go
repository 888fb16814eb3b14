package store

import (
	"errors"
	"fmt"
)

// StorageError reports a failed append or read on an audit store. The
// store does not retry; callers surface it to the operator.
type StorageError struct {
	Op  string // "append" | "load" | "open"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Wrap converts a backend error into a *StorageError. Nil stays nil and
// errors that already carry a StorageError are returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
