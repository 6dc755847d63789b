package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engines. Match them with errors.Is.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrPersistence       = errors.New("persistence failure")
)

// Error carries the failing operation and human-readable details alongside
// one of the kind sentinels above.
type Error struct {
	Kind    error
	Op      string
	Details string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationError(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Op: op, Details: fmt.Sprintf(format, args...)}
}

func stockError(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrInsufficientStock, Op: op, Details: fmt.Sprintf(format, args...)}
}

func notFoundError(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Op: op, Details: fmt.Sprintf(format, args...)}
}

func persistenceError(op string, err error) error {
	return &Error{Kind: ErrPersistence, Op: op, Err: err}
}
