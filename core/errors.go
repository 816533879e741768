package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrForbidden is returned when a principal lacks permission on an otherwise valid resource.
	ErrForbidden = errors.New("permission denied")

	// ErrConflict is returned by storage when a unique constraint is violated.
	ErrConflict = errors.New("unique constraint violated")

	// ErrNoRecord is returned by storage when no row matches a lookup.
	// Services translate it into the NotFoundError of their entity.
	ErrNoRecord = errors.New("no matching record")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports a resource referenced by Field (id, email..) that does not exist.
// Two NotFoundErrors match with errors.Is when they are about the same Entity,
// so `errors.Is(err, school.ErrClassNotFound)` holds for any class id.
type NotFoundError struct {
	Entity string
	Field  string
	Value  interface{}
}

func NewNotFoundError(entity, field string, value interface{}) error {
	return &NotFoundError{Entity: entity, Field: field, Value: value}
}

func (err *NotFoundError) Error() string {
	if err.Field == "" {
		return err.Entity + " not found"
	}
	return fmt.Sprintf("%s with %s %v not found", err.Entity, err.Field, err.Value)
}

func (err *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	return ok && t.Entity == err.Entity
}

// AlreadyExistsError reports that a uniqueness constraint would be violated.
type AlreadyExistsError struct {
	Entity string
	Detail string
}

func NewAlreadyExistsError(entity, detail string) error {
	return &AlreadyExistsError{Entity: entity, Detail: detail}
}

func (err *AlreadyExistsError) Error() string {
	if err.Detail == "" {
		return err.Entity + " already exists"
	}
	return fmt.Sprintf("%s %s already exists", err.Entity, err.Detail)
}

func (err *AlreadyExistsError) Is(target error) bool {
	t, ok := target.(*AlreadyExistsError)
	return ok && t.Entity == err.Entity
}

// NotificationError is returned when a notification message cannot be built.
// Delivery failures are logged and never surface as errors.
type NotificationError struct {
	Err error
}

func (err *NotificationError) Error() string {
	return "building notification: " + err.Err.Error()
}

func (err *NotificationError) Unwrap() error { return err.Err }

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
