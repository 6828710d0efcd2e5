package journal

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *FieldError.
	ErrValidation = errors.New("validation failed")

	// ErrConflict matches uniqueness violations.
	ErrConflict = errors.New("conflict")

	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage failure")

	ErrTradeNotFound = errors.New("trade not found")
)

var (
	ErrEmptyUsername     = &FieldError{Field: "username", Reason: "must not be empty"}
	ErrPasswordTooShort  = &FieldError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", MinPasswordLen)}
	ErrDuplicateUsername = &ConflictError{Field: "username", Reason: "already exists"}
)

// FieldError reports the input field that failed validation. Nothing is
// written when one is returned.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}

type ConflictError struct {
	Field  string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// StorageError wraps a failure of the underlying database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
