// ABOUTME: In-memory annotation graph for one document
// ABOUTME: Ordered lines, id index, id allocation and cascading deletes

package document

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/nainya/annstore/pkg/annotation"
)

// maxIDNumber bounds the search for a free id
const maxIDNumber = 1 << 15

// Document holds every record of one annotation file. Records refer to each
// other only by id. A Document is owned by a single editing session and is
// not safe for concurrent use.
type Document struct {
	name     string
	readOnly bool
	text     []rune
	hasText  bool

	compat2013   bool
	compatRelTyp map[string]bool

	lines []annotation.Annotation
	byID  map[string]annotation.Annotation
	maxID map[string]int

	failedLines  []int
	syntaxErrors []*annotation.LineSyntaxError
	warnings     []annotation.Warning
	violations   []error
	extTriggers  map[string]bool

	modTime time.Time
	log     zerolog.Logger
}

// New creates an empty document
func New(opts Options) *Document {
	d := &Document{
		name:        opts.Name,
		readOnly:    opts.ReadOnly,
		hasText:     opts.HasText,
		compat2013:  opts.Compat2013,
		byID:        make(map[string]annotation.Annotation),
		maxID:       make(map[string]int),
		extTriggers: make(map[string]bool),
		modTime:     time.Now(),
		log:         opts.Logger.With().Str("doc", opts.Name).Logger(),
	}
	if opts.HasText {
		d.text = []rune(opts.Text)
	}
	if len(opts.CompatRelationTypes) > 0 {
		d.compatRelTyp = make(map[string]bool, len(opts.CompatRelationTypes))
		for _, t := range opts.CompatRelationTypes {
			d.compatRelTyp[t] = true
		}
	}
	return d
}

// Parse reads a whole annotation file. Lines that cannot be parsed are kept
// verbatim and reported through FailedLines and SyntaxErrors; only read
// and encoding failures are returned as errors.
func Parse(r io.Reader, opts Options) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read annotations: %w", err)
	}
	return ParseString(string(data), opts)
}

// ParseString is Parse over an in-memory string
func ParseString(data string, opts Options) (*Document, error) {
	if !utf8.ValidString(data) {
		return nil, ErrEncoding
	}

	d := New(opts)
	parser := annotation.NewParser(annotation.ParserOptions{
		Text:       opts.Text,
		HasText:    opts.HasText,
		Compat2013: opts.Compat2013,
		Logger:     d.log,
	})

	for i, line := range splitLines(data) {
		ann, err := parser.ParseLine(line, i+1)
		if id := identifier(ann, err); id != "" && id != annotation.EquivID {
			if _, dup := d.byID[id]; dup {
				err = &annotation.LineSyntaxError{
					LineNum: i + 1,
					Line:    strings.TrimRight(line, "\r\n"),
					Err:     fmt.Errorf("%w: %s", annotation.ErrDuplicateID, id),
				}
			}
		}
		if err != nil {
			var lse *annotation.LineSyntaxError
			if !errors.As(err, &lse) {
				return nil, err
			}
			ann = lse.Fallback()
			d.fail(i, lse)
		}

		d.add(ann)
	}

	d.warnings = parser.Warnings()
	d.violations = d.SanityCheck()
	for _, v := range d.violations {
		d.log.Warn().Err(v).Msg("sanity check")
	}
	return d, nil
}

// identifier returns the id a parsed or half-parsed line claims
func identifier(ann annotation.Annotation, err error) string {
	if err != nil {
		var lse *annotation.LineSyntaxError
		if errors.As(err, &lse) {
			return lse.ID
		}
		return ""
	}
	return ann.Identifier()
}

func splitLines(data string) []string {
	if data == "" {
		return nil
	}
	lines := strings.Split(data, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (d *Document) fail(lineIdx int, lse *annotation.LineSyntaxError) {
	d.failedLines = append(d.failedLines, lineIdx)
	d.syntaxErrors = append(d.syntaxErrors, lse)
	d.log.Warn().Int("line", lse.LineNum).Str("id", lse.ID).Err(lse.Err).Msg("unparsable annotation line")
}

// Name returns the document name given at creation
func (d *Document) Name() string { return d.name }

// ReadOnly reports whether changes are refused
func (d *Document) ReadOnly() bool { return d.readOnly }

// HasText reports whether the document text is available
func (d *Document) HasText() bool { return d.hasText }

// Text returns the document text as code points
func (d *Document) Text() []rune { return d.text }

// Compat2013 reports whether the 2013 compatibility rules are active
func (d *Document) Compat2013() bool { return d.compat2013 }

// ModTime is the time of the last change
func (d *Document) ModTime() time.Time { return d.modTime }

// Touch marks the document as modified now. Call it after changing a
// record in place.
func (d *Document) Touch() { d.modTime = time.Now() }

// Len returns the number of lines
func (d *Document) Len() int { return len(d.lines) }

// Lines returns all records in file order
func (d *Document) Lines() []annotation.Annotation {
	return append([]annotation.Annotation(nil), d.lines...)
}

// FailedLines returns the 0-based numbers of lines that could not be parsed
func (d *Document) FailedLines() []int { return d.failedLines }

// SyntaxErrors returns the parse error for each failed line
func (d *Document) SyntaxErrors() []*annotation.LineSyntaxError { return d.syntaxErrors }

// Warnings returns the non-fatal notes raised while parsing
func (d *Document) Warnings() []annotation.Warning { return d.warnings }

// Violations returns the sanity check findings made after parsing
func (d *Document) Violations() []error { return d.violations }

// HighWater returns the largest id number seen for prefix
func (d *Document) HighWater(prefix string) int { return d.maxID[prefix] }

// Get returns the record with the given id
func (d *Document) Get(id string) (annotation.Annotation, error) {
	ann, ok := d.byID[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return ann, nil
}

// NewID returns the first unused id prefix+N, counting from 1.
//
// The id is not reserved: calling NewID twice without adding a record in
// between returns the same id. Callers must add the record before asking
// for the next one.
func (d *Document) NewID(prefix string) string {
	id, _ := d.NewIDWithSuffix(prefix, "")
	return id
}

// NewIDWithSuffix is NewID for ids of the form prefix+N+suffix
func (d *Document) NewIDWithSuffix(prefix, suffix string) (string, error) {
	for i := 1; i < maxIDNumber; i++ {
		id := fmt.Sprintf("%s%d%s", prefix, i, suffix)
		if _, used := d.byID[id]; !used {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w %s", ErrIDSpaceExhausted, prefix)
}

// Add appends a record. An equivalence group sharing a member with an
// existing group is merged into it instead of being added.
func (d *Document) Add(ann annotation.Annotation) error {
	if d.readOnly {
		return &ReadOnlyError{Name: d.name}
	}
	d.add(ann)
	return nil
}

func (d *Document) add(ann annotation.Annotation) {
	if eq, ok := ann.(*annotation.Equiv); ok && d.mergeEquiv(eq) {
		d.Touch()
		return
	}

	if id := ann.Identifier(); id != "" {
		d.byID[id] = ann
		if pre, num, _, err := annotation.SplitID(id); err == nil {
			if n, _ := strconv.Atoi(num); n > d.maxID[pre] {
				d.maxID[pre] = n
			}
		}
	}
	d.lines = append(d.lines, ann)
	d.Touch()
}

// mergeEquiv folds eq into the existing groups it overlaps. Groups that
// become connected through eq are merged into the last of them.
func (d *Document) mergeEquiv(eq *annotation.Equiv) bool {
	cand := eq
	for _, existing := range d.Equivs() {
		if !sharesMember(cand, existing) {
			continue
		}
		for _, m := range cand.Members {
			if !existing.Has(m) {
				existing.Members = append(existing.Members, m)
			}
		}
		if cand != eq {
			d.deleteLine(cand)
		}
		cand = existing
	}
	return cand != eq
}

func sharesMember(a, b *annotation.Equiv) bool {
	for _, m := range a.Members {
		if b.Has(m) {
			return true
		}
	}
	return false
}

func (d *Document) indexOf(ann annotation.Annotation) int {
	for i, l := range d.lines {
		if l == ann {
			return i
		}
	}
	return -1
}

// Contains reports whether ann is one of the document's records
func (d *Document) Contains(ann annotation.Annotation) bool {
	return d.indexOf(ann) >= 0
}

func (d *Document) deleteLine(ann annotation.Annotation) {
	if id := ann.Identifier(); id != "" && d.byID[id] == ann {
		delete(d.byID, id)
	}
	if i := d.indexOf(ann); i >= 0 {
		d.lines = append(d.lines[:i], d.lines[i+1:]...)
	}
	d.Touch()
}

// autoDeletable reports whether a dependent is removed together with the
// record it depends on.
func autoDeletable(ann annotation.Annotation) bool {
	switch ann.(type) {
	case *annotation.Attribute, *annotation.Equiv, *annotation.Comment, *annotation.Normalization:
		return true
	}
	return false
}

// Remove deletes a record. Attributes, comments and normalizations of the
// record are deleted with it and it is dropped from equivalence groups
// (a group left with fewer than two members is deleted). Any other
// dependent blocks the delete with a *DependencyError and nothing changes.
// tr may be nil.
func (d *Document) Remove(ann annotation.Annotation, tr Tracker) error {
	if d.readOnly {
		return &ReadOnlyError{Name: d.name}
	}
	if !d.Contains(ann) {
		return &NotFoundError{ID: ann.Identifier()}
	}

	id := ann.Identifier()
	if id == "" {
		d.deleteLine(ann)
		deleted(tr, ann)
		return nil
	}

	var dependents, blocking []annotation.Annotation
	for _, other := range d.lines {
		if other == ann || !other.Deps().Contains(id) {
			continue
		}
		dependents = append(dependents, other)
		if !autoDeletable(other) {
			blocking = append(blocking, other)
		}
	}
	if len(blocking) > 0 {
		return &DependencyError{Target: ann, Dependents: blocking}
	}

	for _, dep := range dependents {
		eq, ok := dep.(*annotation.Equiv)
		if !ok || len(eq.Members) <= 2 {
			d.deleteLine(dep)
			deleted(tr, dep)
			continue
		}
		before := eq.String()
		members := eq.Members[:0]
		for _, m := range eq.Members {
			if m != id {
				members = append(members, m)
			}
		}
		eq.Members = members
		if tr != nil {
			tr.Changed(before, eq)
		}
	}

	deleted(tr, ann)
	d.deleteLine(ann)
	return nil
}

func deleted(tr Tracker, ann annotation.Annotation) {
	if tr != nil {
		tr.Deleted(ann)
	}
}

// Snapshot copies every record so that Restore can undo later changes
func (d *Document) Snapshot() *Snapshot {
	s := &Snapshot{
		lines:   make([]annotation.Annotation, len(d.lines)),
		maxID:   make(map[string]int, len(d.maxID)),
		modTime: d.modTime,
	}
	for i, l := range d.lines {
		s.lines[i] = l.Clone()
	}
	for k, v := range d.maxID {
		s.maxID[k] = v
	}
	return s
}

// Restore resets the records to a snapshot. Records obtained before the
// call are no longer part of the document afterwards.
func (d *Document) Restore(s *Snapshot) {
	d.lines = make([]annotation.Annotation, len(s.lines))
	d.byID = make(map[string]annotation.Annotation, len(s.lines))
	for i, l := range s.lines {
		c := l.Clone()
		d.lines[i] = c
		if id := c.Identifier(); id != "" {
			if _, dup := d.byID[id]; !dup {
				d.byID[id] = c
			}
		}
	}
	d.maxID = make(map[string]int, len(s.maxID))
	for k, v := range s.maxID {
		d.maxID[k] = v
	}
	d.modTime = s.modTime
}

// String serializes the document, one record per line with a final newline
func (d *Document) String() string {
	if len(d.lines) == 0 {
		return ""
	}
	var b strings.Builder
	for _, l := range d.lines {
		b.WriteString(strings.TrimRight(l.String(), "\r\n"))
		b.WriteByte('\n')
	}
	return b.String()
}

// Status returns the workflow status, the last STATUS comment winning
func (d *Document) Status() string {
	statuses := d.Statuses()
	if len(statuses) == 0 {
		return ""
	}
	return statuses[len(statuses)-1].Target
}

// SetStatus replaces every STATUS comment with one holding status. An
// empty status only removes the old ones.
func (d *Document) SetStatus(status string) error {
	if d.readOnly {
		return &ReadOnlyError{Name: d.name}
	}
	if strings.ContainsAny(status, " \t\n") {
		return fmt.Errorf("document: status %q must be a single word", status)
	}
	for _, s := range d.Statuses() {
		if err := d.Remove(s, nil); err != nil {
			return err
		}
	}
	if status == "" {
		return nil
	}
	return d.Add(&annotation.Comment{ID: d.NewID("#"), Type: annotation.StatusType, Target: status})
}
