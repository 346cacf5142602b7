// Package journal keeps an append-only, checksummed history of annotation
// file revisions
package journal

import "errors"

var (
	// ErrCorrupted indicates a revision whose checksum does not match
	ErrCorrupted = errors.New("journal: corrupted revision")

	// ErrTruncated indicates a revision cut short, usually by a crash mid-append
	ErrTruncated = errors.New("journal: truncated revision")

	// ErrClosed indicates an operation on a closed journal
	ErrClosed = errors.New("journal: closed")

	// ErrNotFound indicates a revision number that is not in the journal
	ErrNotFound = errors.New("journal: revision not found")

	// ErrTooLarge indicates a revision that does not fit the size fields
	ErrTooLarge = errors.New("journal: revision too large")
)
