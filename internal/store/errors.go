package store

import (
	"errors"
	"fmt"
)

// ErrUnknownGroup is returned when options are requested for a group the
// store has no aggregation for.
var ErrUnknownGroup = errors.New("unknown option group")

// ExecutionError wraps a failure reported by the profile store.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func execErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExecutionError{Op: op, Err: err}
}
