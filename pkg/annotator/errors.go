package annotator

import "fmt"

// RequestError reports a malformed or inconsistent request. Nothing was
// changed.
type RequestError struct {
	Op     string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func requestErr(op, format string, args ...any) error {
	return &RequestError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// CategoryError reports a retype across categories, e.g. entity to event
type CategoryError struct {
	ID           string
	From, To     string
	FromCategory Category
	ToCategory   Category
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("cannot convert %s from %s (%s) into %s (%s)",
		e.ID, e.From, e.FromCategory, e.To, e.ToCategory)
}

// SplitError reports an event that cannot be split as requested
type SplitError struct {
	ID     string
	Reason string
}

func (e *SplitError) Error() string {
	return fmt.Sprintf("cannot split %s: %s", e.ID, e.Reason)
}
