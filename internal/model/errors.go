package model

import (
	"context"
	"errors"
	"fmt"
)

// TimeoutError marks a failure caused by an expired per-call deadline.
// It is wrapped inside the error kind of the operation that timed out.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Timeout reports true, matching the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// AsTimeout returns a *TimeoutError for op when err is a deadline
// expiry, and err unchanged otherwise.
func AsTimeout(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTimeout(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	return err
}

// IsTimeout reports whether err carries a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
