package annotator

import (
	"errors"
	"strings"
	"unicode"

	"github.com/nainya/annstore/pkg/annotation"
	"github.com/nainya/annstore/pkg/document"
	"github.com/nainya/annstore/pkg/span"
)

// SpanResult is the outcome of CreateSpan
type SpanResult struct {
	*Changes

	Undo Undo

	// Rejected is set when the selection held nothing but whitespace and
	// no annotation was created
	Rejected bool

	TextBound *annotation.TextBound
	Event     *annotation.Event
}

// CreateSpan creates a text-bound, and an event on it for non-entity types,
// or edits the text-bound or event named by req.ID. Attributes,
// normalizations and the note are then set on the event if there is one,
// else on the text-bound.
func (e *Engine) CreateSpan(req SpanRequest) (*SpanResult, error) {
	if err := e.validateSpanRequest(req); err != nil {
		return nil, err
	}

	res := &SpanResult{}
	ch, err := e.atomically("create_span", func(ch *Changes) error {
		var tb *annotation.TextBound
		var ev *annotation.Event
		var err error

		if req.ID != "" {
			tb, ev, err = e.editSpan(ch, req, &res.Undo)
		} else {
			tb, ev, err = e.newSpan(ch, req.Type, req.Offsets)
			if tb == nil && err == nil {
				res.Rejected = true
				return nil
			}
			res.Undo.Action = UndoAdd
			if ev != nil {
				res.Undo.ID = ev.ID
			} else if tb != nil {
				res.Undo.ID = tb.ID
			}
		}
		if err != nil {
			return err
		}

		targetID := tb.ID
		if ev != nil {
			targetID = ev.ID
		}

		e.setAttributes(ch, targetID, req.Attributes, &res.Undo)
		if err := e.setNormalizations(ch, targetID, req.Normalizations, &res.Undo); err != nil {
			return err
		}
		if err := e.setComment(ch, targetID, req.Comment, &res.Undo); err != nil {
			return err
		}

		res.TextBound, res.Event = tb, ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Changes = ch
	return res, nil
}

func (e *Engine) validateSpanRequest(req SpanRequest) error {
	if len(req.Offsets) == 0 {
		return requestErr("create_span", "no offsets")
	}
	if req.Type == "" || strings.ContainsAny(req.Type, " \t\n") {
		return requestErr("create_span", "invalid type %q", req.Type)
	}
	for _, s := range req.Offsets {
		if s.Start > s.End || s.Start < 0 {
			return &span.RangeError{Spans: req.Offsets, TextLen: len(e.doc.Text())}
		}
	}
	if span.Overlaps(req.Offsets) {
		return &span.OverlapError{Spans: req.Offsets}
	}
	if err := validateAttributes("create_span", req.Attributes); err != nil {
		return err
	}
	for _, n := range req.Normalizations {
		if strings.TrimSpace(n.RefDB) == "" {
			return requestErr("create_span", "empty normalization DB")
		}
		if strings.TrimSpace(n.RefID) == "" {
			return requestErr("create_span", "empty normalization ID")
		}
		if strings.ContainsAny(n.RefDB+n.RefID, " \t\n:") || strings.Contains(n.RefText, "\n") {
			return requestErr("create_span", "invalid normalization %s:%s", n.RefDB, n.RefID)
		}
	}
	if strings.Contains(req.Comment, "\n") {
		return requestErr("create_span", "comment must be a single line")
	}
	return nil
}

// editSpan moves and retypes an existing text-bound or event
func (e *Engine) editSpan(ch *Changes, req SpanRequest, undo *Undo) (*annotation.TextBound, *annotation.Event, error) {
	ann, err := e.doc.Get(req.ID)
	if err != nil {
		return nil, nil, err
	}

	var tb *annotation.TextBound
	var ev *annotation.Event
	category := CategoryEntity
	switch a := ann.(type) {
	case *annotation.Event:
		trig, err := e.doc.Get(a.Trigger)
		if err != nil {
			return nil, nil, err
		}
		t, ok := trig.(*annotation.TextBound)
		if !ok {
			return nil, nil, requestErr("create_span", "trigger %s of %s is not a text-bound", a.Trigger, a.ID)
		}
		tb, ev, category = t, a, CategoryEvent
	case *annotation.TextBound:
		tb = a
	default:
		return nil, nil, requestErr("create_span", "%s is not a span", req.ID)
	}

	oldType := annotation.TypeOf(ann)
	if oldType != req.Type {
		if to := e.conf.TypeCategory(req.Type); to != category {
			return nil, nil, &CategoryError{
				ID: req.ID, From: oldType, To: req.Type,
				FromCategory: category, ToCategory: to,
			}
		}
	}

	undo.Action = UndoModify
	undo.ID = req.ID
	undo.Offsets = span.Clone(tb.Spans)
	undo.Type = tb.Type

	if !span.Equal(tb.Spans, req.Offsets) {
		spans := span.Sorted(req.Offsets)
		text, err := e.spanText(spans)
		if err != nil {
			return nil, nil, err
		}
		before := tb.String()
		tb.Spans = spans
		if e.doc.HasText() {
			tb.Text, tb.WithText = text, true
		}
		ch.Changed(before, tb)
	}

	if oldType == req.Type {
		return tb, ev, nil
	}

	if ev == nil {
		before := tb.String()
		tb.Type = req.Type
		ch.Changed(before, tb)
		return tb, nil, nil
	}

	before := ev.String()
	ev.Type = req.Type
	tb, err = e.retypeTrigger(ch, ev, tb)
	if err != nil {
		return nil, nil, err
	}
	ch.Changed(before, ev)
	return tb, ev, nil
}

// retypeTrigger makes ev's trigger carry ev's new type. A trigger shared
// with other events is cloned; an existing trigger with the same spans and
// type is reused and the old one deleted.
func (e *Engine) retypeTrigger(ch *Changes, ev *annotation.Event, trig *annotation.TextBound) (*annotation.TextBound, error) {
	if trig.Type == ev.Type {
		return trig, nil
	}

	shared := false
	for _, other := range e.doc.EventsWithTrigger(trig.ID) {
		if other != ev {
			shared = true
			break
		}
	}
	if shared {
		clone := trig.Clone().(*annotation.TextBound)
		clone.ID = e.doc.NewID("T")
		clone.Type = ev.Type
		ev.Trigger = clone.ID
		if err := e.doc.Add(clone); err != nil {
			return nil, err
		}
		ch.addition(clone)
		return clone, nil
	}

	for _, tb := range e.doc.TextBounds() {
		if tb.Type == ev.Type && span.Equal(tb.Spans, trig.Spans) {
			ev.Trigger = tb.ID
			if err := e.doc.Remove(trig, ch); err != nil {
				return nil, err
			}
			return tb, nil
		}
	}

	before := trig.String()
	trig.Type = ev.Type
	ch.Changed(before, trig)
	return trig, nil
}

// newSpan adds a text-bound for offsets, reusing an identical trigger for
// event types, and an event unless typ is a physical entity type. It
// returns a nil text-bound when the selection is only whitespace.
func (e *Engine) newSpan(ch *Changes, typ string, offsets []span.Span) (*annotation.TextBound, *annotation.Event, error) {
	var tb *annotation.TextBound
	if e.conf.IsEventType(typ) {
		for _, t := range e.doc.TextBounds() {
			if t.Type == typ && span.Equal(t.Spans, offsets) {
				tb = t
				break
			}
		}
	}

	if tb == nil {
		spans := span.Sorted(offsets)
		if e.doc.HasText() {
			var err error
			spans, err = e.splitOnNewlines(spans)
			if err != nil {
				return nil, nil, err
			}
			if spans == nil {
				return nil, nil, nil
			}
		}
		text, err := e.spanText(spans)
		if err != nil {
			return nil, nil, err
		}
		tb = &annotation.TextBound{
			ID:       e.doc.NewID("T"),
			Type:     typ,
			Spans:    spans,
			Text:     text,
			WithText: e.doc.HasText(),
		}
		if err := e.doc.Add(tb); err != nil {
			return nil, nil, err
		}
		ch.addition(tb)
	}

	if e.conf.IsPhysicalEntityType(typ) {
		return tb, nil, nil
	}
	ev := &annotation.Event{
		ID:      e.doc.NewID("E"),
		Type:    typ,
		Trigger: tb.ID,
		Args:    []annotation.Arg{},
	}
	if err := e.doc.Add(ev); err != nil {
		return nil, nil, err
	}
	ch.addition(ev)
	return tb, ev, nil
}

// splitOnNewlines breaks spans at line breaks and trims whitespace around
// every piece. It returns nil when nothing but whitespace was selected;
// a selection of empty spans is kept as is.
func (e *Engine) splitOnNewlines(spans []span.Span) ([]span.Span, error) {
	text := e.doc.Text()
	var out []span.Span
	empty := true
	for _, s := range spans {
		if _, err := span.TextFor(text, []span.Span{s}, span.Separator); err != nil {
			return nil, err
		}
		if s.Start == s.End {
			continue
		}
		empty = false

		pos := s.Start
		for _, line := range strings.Split(string(text[s.Start:s.End]), "\n") {
			seg := []rune(line)
			if len(seg) == 0 {
				pos++
				continue
			}
			start, end := pos, pos+len(seg)
			pos = end + 1

			for start < end && unicode.IsSpace(text[start]) {
				start++
			}
			for end > start && unicode.IsSpace(text[end-1]) {
				end--
			}
			if start < end {
				out = append(out, span.Span{Start: start, End: end})
			}
		}
	}
	if empty {
		return spans, nil
	}
	return out, nil
}

// DeleteSpan deletes a text-bound or event together with its attributes,
// notes and normalizations. Deleting an event also deletes its trigger
// unless another annotation still needs it.
func (e *Engine) DeleteSpan(id string) (*Changes, error) {
	return e.atomically("delete_span", func(ch *Changes) error {
		ann, err := e.doc.Get(id)
		if err != nil {
			return err
		}
		switch ann.(type) {
		case *annotation.TextBound, *annotation.Event:
		default:
			return requestErr("delete_span", "%s is not a span", id)
		}

		if err := e.doc.Remove(ann, ch); err != nil {
			return err
		}

		ev, ok := ann.(*annotation.Event)
		if !ok {
			return nil
		}
		trig, err := e.doc.Get(ev.Trigger)
		if err != nil {
			return nil
		}
		var dep *document.DependencyError
		if err := e.doc.Remove(trig, ch); err != nil && !errors.As(err, &dep) {
			return err
		}
		return nil
	})
}

// setAttributes makes the attributes of target match attrs
func (e *Engine) setAttributes(ch *Changes, target string, attrs map[string]string, undo *Undo) {
	existing := make(map[string]bool)
	undo.Attributes = make(map[string]string)

	for _, a := range e.doc.Attributes() {
		if a.Target != target {
			continue
		}
		existing[a.Type] = true
		undo.Attributes[a.Type] = a.Value

		value, keep := attrs[a.Type]
		if !keep {
			// Attributes have no dependents, so this cannot fail
			_ = e.doc.Remove(a, ch)
			continue
		}
		if a.Value != value {
			before := a.String()
			a.Value = value
			ch.Changed(before, a)
		}
	}

	for _, typ := range sortedKeys(attrs) {
		if existing[typ] {
			continue
		}
		attr := &annotation.Attribute{
			ID:     e.doc.NewID("A"),
			Type:   typ,
			Target: target,
			Value:  attrs[typ],
		}
		_ = e.doc.Add(attr)
		ch.addition(attr)
	}
}

// setNormalizations makes the normalizations of target match norms, keyed
// by (refdb, refid)
func (e *Engine) setNormalizations(ch *Changes, target string, norms []NormRef, undo *Undo) error {
	type key struct{ db, id string }
	want := make(map[key]string, len(norms))
	for _, n := range norms {
		want[key{n.RefDB, n.RefID}] = n.RefText
	}

	have := make(map[key]bool)
	undo.Normalizations = nil
	for _, n := range e.doc.Normalizations() {
		if n.Target != target {
			continue
		}
		k := key{n.RefDB, n.RefID}
		have[k] = true
		undo.Normalizations = append(undo.Normalizations, NormRef{RefDB: n.RefDB, RefID: n.RefID, RefText: n.RefText()})

		text, keep := want[k]
		if !keep {
			if err := e.doc.Remove(n, ch); err != nil {
				return err
			}
			continue
		}
		if n.RefText() != text {
			before := n.String()
			n.SetRefText(text)
			ch.Changed(before, n)
		}
	}

	for _, n := range norms {
		k := key{n.RefDB, n.RefID}
		if have[k] {
			continue
		}
		have[k] = true
		norm := &annotation.Normalization{
			ID:     e.doc.NewID("N"),
			Type:   ReferenceType,
			Target: target,
			RefDB:  n.RefDB,
			RefID:  n.RefID,
		}
		norm.SetRefText(n.RefText)
		if err := e.doc.Add(norm); err != nil {
			return err
		}
		ch.addition(norm)
	}
	return nil
}

// setComment sets, changes or (for empty text) removes the note on target
func (e *Engine) setComment(ch *Changes, target, text string, undo *Undo) error {
	var found *annotation.Comment
	for _, c := range e.doc.Comments() {
		if c.Type == NotesType && c.Target == target {
			found = c
			undo.Comment = strings.TrimPrefix(c.Tail, "\t")
			break
		}
	}

	switch {
	case text != "" && found != nil:
		if found.Tail != "\t"+text {
			before := found.String()
			found.Tail = "\t" + text
			ch.Changed(before, found)
		}
	case text != "":
		c := &annotation.Comment{
			ID:     e.doc.NewID("#"),
			Type:   NotesType,
			Target: target,
			Tail:   "\t" + text,
		}
		if err := e.doc.Add(c); err != nil {
			return err
		}
		ch.addition(c)
	case found != nil:
		return e.doc.Remove(found, ch)
	}
	return nil
}
