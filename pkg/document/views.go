package document

import (
	"github.com/nainya/annstore/pkg/annotation"
)

// TextBounds returns every text-bound record, triggers included
func (d *Document) TextBounds() []*annotation.TextBound {
	var out []*annotation.TextBound
	for _, l := range d.lines {
		if tb, ok := l.(*annotation.TextBound); ok {
			out = append(out, tb)
		}
	}
	return out
}

// Events returns the event records in file order
func (d *Document) Events() []*annotation.Event {
	var out []*annotation.Event
	for _, l := range d.lines {
		if e, ok := l.(*annotation.Event); ok {
			out = append(out, e)
		}
	}
	return out
}

// Relations returns the binary relations in file order
func (d *Document) Relations() []*annotation.Relation {
	var out []*annotation.Relation
	for _, l := range d.lines {
		if r, ok := l.(*annotation.Relation); ok {
			out = append(out, r)
		}
	}
	return out
}

// Equivs returns the equivalence groups in file order
func (d *Document) Equivs() []*annotation.Equiv {
	var out []*annotation.Equiv
	for _, l := range d.lines {
		if eq, ok := l.(*annotation.Equiv); ok {
			out = append(out, eq)
		}
	}
	return out
}

// Attributes returns the attribute records, both binary and valued
func (d *Document) Attributes() []*annotation.Attribute {
	var out []*annotation.Attribute
	for _, l := range d.lines {
		if a, ok := l.(*annotation.Attribute); ok {
			out = append(out, a)
		}
	}
	return out
}

// Normalizations returns the references to external resources
func (d *Document) Normalizations() []*annotation.Normalization {
	var out []*annotation.Normalization
	for _, l := range d.lines {
		if n, ok := l.(*annotation.Normalization); ok {
			out = append(out, n)
		}
	}
	return out
}

// Comments returns the one-line comments except STATUS ones
func (d *Document) Comments() []*annotation.Comment {
	var out []*annotation.Comment
	for _, l := range d.lines {
		if c, ok := l.(*annotation.Comment); ok && c.Type != annotation.StatusType {
			out = append(out, c)
		}
	}
	return out
}

// Statuses returns the STATUS comments in file order
func (d *Document) Statuses() []*annotation.Comment {
	var out []*annotation.Comment
	for _, l := range d.lines {
		if c, ok := l.(*annotation.Comment); ok && c.Type == annotation.StatusType {
			out = append(out, c)
		}
	}
	return out
}

// Triggers returns the text-bounds referenced as trigger by some event,
// in order of first reference.
func (d *Document) Triggers() []*annotation.TextBound {
	var out []*annotation.TextBound
	seen := make(map[string]bool)
	for _, e := range d.Events() {
		if seen[e.Trigger] {
			continue
		}
		if tb, ok := d.byID[e.Trigger].(*annotation.TextBound); ok {
			seen[e.Trigger] = true
			out = append(out, tb)
		}
	}
	return out
}

// Entities returns the text-bounds that are not event triggers
func (d *Document) Entities() []*annotation.TextBound {
	triggers := make(map[*annotation.TextBound]bool)
	for _, t := range d.Triggers() {
		triggers[t] = true
	}
	var out []*annotation.TextBound
	for _, tb := range d.TextBounds() {
		if !triggers[tb] {
			out = append(out, tb)
		}
	}
	return out
}

// EventsWithTrigger returns the events anchored on the given text-bound id
func (d *Document) EventsWithTrigger(id string) []*annotation.Event {
	var out []*annotation.Event
	for _, e := range d.Events() {
		if e.Trigger == id {
			out = append(out, e)
		}
	}
	return out
}

// Referencing returns every record whose dependencies include id
func (d *Document) Referencing(id string) []annotation.Annotation {
	var out []annotation.Annotation
	for _, l := range d.lines {
		if l.Deps().Contains(id) {
			out = append(out, l)
		}
	}
	return out
}
