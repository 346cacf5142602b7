// Package annotator implements the compound edit operations over an open
// document: creating and editing spans, arcs between annotations, and
// splitting events. Every operation either applies completely or leaves the
// document as it was.
package annotator

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nainya/annstore/pkg/document"
	"github.com/nainya/annstore/pkg/span"
)

const (
	// NotesType is the comment type holding an annotator's free-text note
	NotesType = "AnnotatorNotes"

	// ReferenceType is the type given to new normalizations
	ReferenceType = "Reference"
)

// Engine edits one document. Like the document it is not safe for
// concurrent use.
type Engine struct {
	doc  *document.Document
	conf TypeConfig
	log  zerolog.Logger

	// OnOperation, when set, is called after every operation
	OnOperation func(op string, d time.Duration, err error)
}

// New creates an engine over doc using conf for type questions
func New(doc *document.Document, conf TypeConfig, logger zerolog.Logger) *Engine {
	return &Engine{
		doc:  doc,
		conf: conf,
		log:  logger.With().Str("doc", doc.Name()).Logger(),
	}
}

// Document returns the document being edited
func (e *Engine) Document() *document.Document { return e.doc }

// atomically runs fn against the document and rolls every change back if
// it fails
func (e *Engine) atomically(op string, fn func(ch *Changes) error) (*Changes, error) {
	start := time.Now()
	ch, err := e.run(op, fn)
	if e.OnOperation != nil {
		e.OnOperation(op, time.Since(start), err)
	}
	return ch, err
}

func (e *Engine) run(op string, fn func(ch *Changes) error) (*Changes, error) {
	if e.doc.ReadOnly() {
		return nil, &document.ReadOnlyError{Name: e.doc.Name()}
	}

	snap := e.doc.Snapshot()
	ch := &Changes{}
	if err := fn(ch); err != nil {
		e.doc.Restore(snap)
		e.log.Debug().Err(err).Str("op", op).Msg("operation rolled back")
		return nil, err
	}

	for _, w := range ch.warnings {
		e.log.Warn().Str("op", op).Msg(w)
	}
	e.log.Debug().
		Str("op", op).
		Int("added", len(ch.added)).
		Int("changed", len(ch.changed)).
		Int("deleted", len(ch.deleted)).
		Msg("operation applied")
	return ch, nil
}

// Status returns the document's workflow status
func (e *Engine) Status() string {
	return e.doc.Status()
}

// SetStatus replaces the workflow status; empty clears it
func (e *Engine) SetStatus(status string) (*Changes, error) {
	return e.atomically("set_status", func(ch *Changes) error {
		for _, s := range e.doc.Statuses() {
			if err := e.doc.Remove(s, ch); err != nil {
				return err
			}
		}
		if status == "" {
			return nil
		}
		if err := e.doc.SetStatus(status); err != nil {
			return err
		}
		statuses := e.doc.Statuses()
		ch.addition(statuses[len(statuses)-1])
		return nil
	})
}

// spanText returns the document text covered by spans, joined in
// position order, or "" when the document has no text
func (e *Engine) spanText(spans []span.Span) (string, error) {
	if !e.doc.HasText() {
		return "", nil
	}
	text := e.doc.Text()
	pieces := make([]string, len(spans))
	for i, s := range span.Sorted(spans) {
		piece, err := span.TextFor(text, []span.Span{s}, span.Separator)
		if err != nil {
			return "", err
		}
		pieces[i] = piece
	}
	return strings.Join(pieces, span.Separator), nil
}
