package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrStorageFailure     = errors.New("storage failure")
	ErrRoleNotAllowed     = errors.New("role not allowed")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
)

// DuplicateIdentityError is returned when registration collides with an existing
// account on a unique field ("username" or "email").
type DuplicateIdentityError struct {
	Field string
	Value string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate %s %q", e.Field, e.Value)
}

// StorageError wraps an unexpected persistence failure. It matches ErrStorageFailure.
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
	return target == ErrStorageFailure
}
