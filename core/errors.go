package core

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when a lookup by key matched no rows.
var ErrNotFound = errors.New("resource not found")

// ErrConflict is matched by storage errors caused by a uniqueness constraint.
var ErrConflict = errors.New("resource already exists")

// Signed link errors.
var (
	ErrLinkExpired = errors.New("The download link has expired.")
	ErrLinkInvalid = errors.New("The download link is invalid.")
)

// FieldError is used to indicate an error with a specific field.
type FieldError struct {
	Field string `json:"field,omitempty"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return strings.Join(err.Messages(), " ")
}

// Messages lists the human readable field errors.
func (err ValidationError) Messages() []string {
	msgs := make([]string, 0, len(err.Fields))
	for _, fe := range err.Fields {
		msgs = append(msgs, fe.Error)
	}
	return msgs
}

func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// StorageError wraps any lower-level storage failure.
// The wrapped error is for logs only and must not reach API clients.
type StorageError struct {
	Op       string
	Err      error
	Conflict bool
}

func NewStorageError(err error, op string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (err *StorageError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err *StorageError) Unwrap() error { return err.Err }

func (err *StorageError) Is(target error) bool { return err.Conflict && target == ErrConflict }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
