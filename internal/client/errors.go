package client

import (
	"errors"
	"fmt"
)

var (
	ErrRoomFull         = errors.New("room is full")
	ErrServerClosed     = errors.New("relay closed the connection")
	ErrTimeout          = errors.New("timeout")
	ErrUnexpectedSignal = errors.New("unexpected signal type")
	ErrNotConnected     = errors.New("not connected")
)

// Error records the operation that failed, like os.PathError.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
