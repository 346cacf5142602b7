package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nainya/annstore/pkg/annotation"
)

var (
	// ErrEncoding is returned when annotation data is not valid UTF-8
	ErrEncoding = errors.New("document: annotation data is not valid UTF-8")

	// ErrIDSpaceExhausted is returned when no free id is left for a prefix
	ErrIDSpaceExhausted = errors.New("document: no free id left for prefix")
)

// NotFoundError reports a lookup of an id that is not in the document.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document: annotation %s not found", e.ID)
}

// ReadOnlyError reports an attempt to change a read-only document.
type ReadOnlyError struct {
	Name string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("document: %s is read-only", e.Name)
}

// DependencyError reports a delete blocked by records that still need the
// target. Nothing was changed.
type DependencyError struct {
	Target     annotation.Annotation
	Dependents []annotation.Annotation
}

// IDs returns references to the blocking records
func (e *DependencyError) IDs() []string {
	ids := make([]string, len(e.Dependents))
	for i, d := range e.Dependents {
		if id := d.Identifier(); id != "" {
			ids[i] = id
		} else {
			ids[i] = d.String()
		}
	}
	return ids
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("document: cannot delete %s: depended on by %s",
		e.Target.Identifier(), strings.Join(e.IDs(), ", "))
}

// DanglingReferenceError reports a reference to an id that does not exist.
type DanglingReferenceError struct {
	Referrer annotation.Annotation
	ID       string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("document: id %s not defined, referenced from %q", e.ID, e.Referrer.String())
}

// EventWithoutTriggerError reports an event whose trigger does not exist.
type EventWithoutTriggerError struct {
	Event *annotation.Event
}

func (e *EventWithoutTriggerError) Error() string {
	return fmt.Sprintf("document: event %s has no trigger %s", e.Event.ID, e.Event.Trigger)
}

// EventWithNonTriggerError reports an event whose trigger is not a
// text-bound of the event's type.
type EventWithNonTriggerError struct {
	Event   *annotation.Event
	Trigger annotation.Annotation
}

func (e *EventWithNonTriggerError) Error() string {
	return fmt.Sprintf("document: event %s (%s) has trigger %s that is not a %s text-bound",
		e.Event.ID, e.Event.Type, e.Trigger.Identifier(), e.Event.Type)
}

// TriggerReferenceError reports a non-event record referring to an event trigger.
type TriggerReferenceError struct {
	Trigger  *annotation.TextBound
	Referrer annotation.Annotation
}

func (e *TriggerReferenceError) Error() string {
	return fmt.Sprintf("document: trigger %s is referenced by %s, which is not an event",
		e.Trigger.ID, e.Referrer.Identifier())
}
