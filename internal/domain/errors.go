package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the application.
var (
	ErrNotFound               = errors.New("resource not found")
	ErrConversationNotFound   = errors.New("conversation not found")
	ErrConnectionNotFound     = errors.New("connection not found")
	ErrConversationNotDeleted = errors.New("conversation must be soft-deleted before purge")
	ErrInvalidStatus          = errors.New("invalid conversation status")
	ErrConflict               = errors.New("resource already exists")
	ErrUnauthorized           = errors.New("unauthorized access")
	ErrInvalidInput           = errors.New("invalid input")
)

// StorageError wraps an underlying persistence failure. Write-path storage
// errors are fatal to the single operation that hit them, never to the
// process or to other conversations.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
