// Package apperrors defines the error taxonomy shared by the rating
// aggregator and the HTTP boundary. Handlers map these types to status
// codes with errors.As; everything else wraps with fmt.Errorf("%w").
package apperrors

import "fmt"

// ValidationError is malformed input (score out of range, unknown content
// type). Never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError is a reference to a content item or rating that does not exist.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func NotFoundf(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError is contention on a content key under concurrent writers.
// Safe to retry after backoff.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflictf(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// StorageError means the backing store failed; the operation must not be
// assumed committed.
type StorageError struct {
	Msg string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *StorageError) Unwrap() error { return e.Err }

func Storage(msg string, err error) error {
	return &StorageError{Msg: msg, Err: err}
}

// PublishError is internal to the event publisher. It never reaches a
// rating-submission caller; events are spooled and retried instead.
type PublishError struct {
	Msg string
	Err error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *PublishError) Unwrap() error { return e.Err }

func Publish(msg string, err error) error {
	return &PublishError{Msg: msg, Err: err}
}
