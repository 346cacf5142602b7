package document

import (
	"sort"

	"github.com/nainya/annstore/pkg/annotation"
)

// SanityCheck reports referential problems: references to undefined ids,
// events without a proper trigger and triggers referenced by anything
// other than events. Findings never prevent the document from loading.
//
// In 2013 compatibility mode relations may reference triggers; the
// triggers concerned are recorded in ExternallyReferencedTriggers.
func (d *Document) SanityCheck() []error {
	var errs []error

	for _, l := range d.lines {
		for _, id := range l.Deps().All() {
			if _, ok := d.byID[id]; !ok {
				errs = append(errs, &DanglingReferenceError{Referrer: l, ID: id})
			}
		}
	}

	for _, e := range d.Events() {
		tr, ok := d.byID[e.Trigger]
		if !ok {
			errs = append(errs, &EventWithoutTriggerError{Event: e})
			continue
		}
		if tb, isTB := tr.(*annotation.TextBound); !isTB || tb.Type != e.Type {
			errs = append(errs, &EventWithNonTriggerError{Event: e, Trigger: tr})
		}
	}

	referrers := make(map[string][]annotation.Annotation)
	for _, l := range d.lines {
		if l.Identifier() == "" {
			continue
		}
		switch l.(type) {
		case *annotation.Event, *annotation.Unparsed:
			continue
		}
		for _, id := range l.Deps().All() {
			referrers[id] = append(referrers[id], l)
		}
	}

	d.extTriggers = make(map[string]bool)
	for _, tr := range d.Triggers() {
		for _, ref := range referrers[tr.ID] {
			if rel, ok := ref.(*annotation.Relation); ok && d.relationMayReferenceTrigger(rel) {
				d.extTriggers[tr.ID] = true
				continue
			}
			errs = append(errs, &TriggerReferenceError{Trigger: tr, Referrer: ref})
		}
	}

	return errs
}

func (d *Document) relationMayReferenceTrigger(rel *annotation.Relation) bool {
	if !d.compat2013 {
		return false
	}
	return d.compatRelTyp == nil || d.compatRelTyp[rel.Type]
}

// ExternallyReferencedTriggers returns, sorted, the triggers that relations
// were allowed to reference under 2013 compatibility mode.
func (d *Document) ExternallyReferencedTriggers() []string {
	out := make([]string, 0, len(d.extTriggers))
	for id := range d.extTriggers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
