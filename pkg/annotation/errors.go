package annotation

import (
	"errors"
	"fmt"
)

var (
	// ErrNoID is returned for a line without a tab-separated id field
	ErrNoID = errors.New("annotation: line has no id field")

	// ErrUnknownPrefix is returned for ids whose prefix names no record kind
	ErrUnknownPrefix = errors.New("annotation: no record kind for id prefix")

	// ErrMalformed is returned for a body that does not fit its record kind
	ErrMalformed = errors.New("annotation: malformed record")

	// ErrTextMismatch is returned when a text-bound's text disagrees with
	// the document
	ErrTextMismatch = errors.New("annotation: text does not match document")

	// ErrSpanRange is returned for offsets outside the document or
	// overlapping each other
	ErrSpanRange = errors.New("annotation: invalid offsets")

	// ErrDuplicateID is returned for a second line reusing an id
	ErrDuplicateID = errors.New("annotation: duplicate id")
)

// InvalidIDError reports a string that is not a well formed annotation id.
type InvalidIDError struct {
	ID string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("annotation: invalid id %q", e.ID)
}

// LineSyntaxError reports a line that could not be parsed into its record
// kind. ID is empty when not even an id could be read.
type LineSyntaxError struct {
	LineNum int
	Line    string
	ID      string
	Err     error
}

func (e *LineSyntaxError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("line %d (id %s): %v", e.LineNum, e.ID, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.LineNum, e.Err)
}

func (e *LineSyntaxError) Unwrap() error { return e.Err }

// Fallback returns the pass-through record that keeps the line verbatim.
func (e *LineSyntaxError) Fallback() Annotation {
	if e.ID != "" {
		return &Unparsed{ID: e.ID, Line: e.Line}
	}
	return &Unknown{Line: e.Line}
}
