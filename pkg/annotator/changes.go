package annotator

import (
	"strings"

	"github.com/nainya/annstore/pkg/annotation"
)

// Change is one record modified in place
type Change struct {
	Before string
	After  annotation.Annotation
}

// Changes collects what an operation added, modified and deleted. It is the
// document.Tracker handed to cascading deletes.
type Changes struct {
	added    []annotation.Annotation
	changed  []Change
	deleted  []annotation.Annotation
	warnings []string
}

func (c *Changes) addition(a annotation.Annotation) {
	c.added = append(c.added, a)
}

func (c *Changes) warn(msg string) {
	c.warnings = append(c.warnings, msg)
}

// Deleted implements document.Tracker
func (c *Changes) Deleted(a annotation.Annotation) {
	c.deleted = append(c.deleted, a)
}

// Changed implements document.Tracker
func (c *Changes) Changed(before string, after annotation.Annotation) {
	c.changed = append(c.changed, Change{Before: before, After: after})
}

// Added lists records the operation created, in creation order
func (c *Changes) Added() []annotation.Annotation { return c.added }

// Modified lists in-place changes with each record's serialized form
// before the change
func (c *Changes) Modified() []Change { return c.changed }

// Removed lists deleted records, cascaded dependents included
func (c *Changes) Removed() []annotation.Annotation { return c.deleted }

// Warnings lists requested changes that were not supported and skipped
func (c *Changes) Warnings() []string { return c.warnings }

// Len returns the number of recorded changes
func (c *Changes) Len() int {
	return len(c.added) + len(c.changed) + len(c.deleted)
}

// Edited returns references to the added and modified records, first seen
// first and without duplicates. Deleted records are not referenced.
func (c *Changes) Edited() [][]string {
	var out [][]string
	seen := make(map[string]bool)
	gone := make(map[annotation.Annotation]bool, len(c.deleted))
	for _, a := range c.deleted {
		gone[a] = true
	}
	push := func(a annotation.Annotation) {
		if gone[a] {
			return
		}
		ref := annotation.Reference(a)
		if ref == nil {
			return
		}
		key := strings.Join(ref, "\x1f")
		if !seen[key] {
			seen[key] = true
			out = append(out, ref)
		}
	}
	for _, a := range c.added {
		push(a)
	}
	for _, ch := range c.changed {
		push(ch.After)
	}
	return out
}
