package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrLockTimeout indicates the document lock could not be taken in
	// time. The write may be retried.
	ErrLockTimeout = errors.New("storage: lock acquisition timed out")

	// ErrSessionClosed indicates Close on a session already closed
	ErrSessionClosed = errors.New("storage: session closed")

	errLocked = errors.New("storage: lock held")
)

// IntegrityError is returned when a written file does not read back as the
// document that was written. The original file is not replaced.
type IntegrityError struct {
	Path        string
	FailedLines []int
	Err         error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("storage: integrity check of %s failed: %v", e.Path, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }
