package fib

import (
	"errors"
	"fmt"
)

// ErrApplyFailed is the sentinel all apply failures wrap.
var ErrApplyFailed = errors.New("fib apply failed")

// ApplyError reports a FIB operation that failed after its retry budget.
type ApplyError struct {
	Op       OpKind
	Prefix   string
	Attempts int
	Cause    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempts: %v", e.Op, e.Prefix, e.Attempts, e.Cause)
}

func (e *ApplyError) Unwrap() error {
	return e.Cause
}

func (e *ApplyError) Is(target error) bool {
	return target == ErrApplyFailed
}
