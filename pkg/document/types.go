// ABOUTME: Options and helper types for the in-memory annotation document
// ABOUTME: Tracker receives cascading changes; Snapshot supports all-or-nothing edits

package document

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/nainya/annstore/pkg/annotation"
)

// Options configures how a document is parsed and whether it may be changed.
type Options struct {
	Name string // Used in errors and log fields

	Text    string // Document text that text-bound records are verified against
	HasText bool   // Verify text-bound records against Text

	// Compat2013 enables the BioNLP Shared Task 2013 compatibility rules:
	// legacy normalization syntax, and relations referencing event triggers.
	Compat2013 bool

	// CompatRelationTypes limits which relation types may reference event
	// triggers in compatibility mode. Empty allows every relation type.
	CompatRelationTypes []string

	ReadOnly bool
	Logger   zerolog.Logger
}

// Tracker is told about records changed as a side effect of an operation.
type Tracker interface {
	Deleted(a annotation.Annotation)
	Changed(before string, after annotation.Annotation)
}

// Snapshot is a deep copy of a document's records, used to roll back a
// failed multi-step edit.
type Snapshot struct {
	lines   []annotation.Annotation
	maxID   map[string]int
	modTime time.Time
}
