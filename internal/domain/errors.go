// Package domain defines the record types and errors shared by the streaming core.
package domain

import (
	"errors"
	"fmt"
)

// ErrDataSource is matched (via errors.Is) by every failure that originates in
// the backing store: ConnectionError, QueryError and ResourceError.
var ErrDataSource = errors.New("data source error")

// ConnectionError indicates the store could not be reached or authenticated against.
type ConnectionError struct {
	Message string
	Err     error
}

func (e *ConnectionError) Error() string { return joinMessage(e.Message, e.Err) }

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrDataSource }

// QueryError indicates a malformed or failing query, including scan failures
// and cancellation while iterating a result set.
type QueryError struct {
	Message string
	Err     error
}

func (e *QueryError) Error() string { return joinMessage(e.Message, e.Err) }

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrDataSource }

// ResourceError indicates a cursor or connection could not be released.
// It is logged, never returned to a consumer.
type ResourceError struct {
	Message string
	Err     error
}

func (e *ResourceError) Error() string { return joinMessage(e.Message, e.Err) }

func (e *ResourceError) Unwrap() error { return e.Err }

func (e *ResourceError) Is(target error) bool { return target == ErrDataSource }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrConnection wraps err in a ConnectionError with a formatted message.
func ErrConnection(err error, format string, args ...interface{}) *ConnectionError {
	return &ConnectionError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrQuery wraps err in a QueryError with a formatted message.
func ErrQuery(err error, format string, args ...interface{}) *QueryError {
	return &QueryError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrResource wraps err in a ResourceError with a formatted message.
func ErrResource(err error, format string, args ...interface{}) *ResourceError {
	return &ResourceError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func joinMessage(msg string, err error) string {
	if err == nil {
		return msg
	}
	return msg + ": " + err.Error()
}
