// ABOUTME: Line parser for the standoff annotation format
// ABOUTME: Dispatches on the id prefix and degrades bad lines instead of failing

package annotation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nainya/annstore/pkg/span"
)

// Warning is a non-fatal note raised while parsing, for example when a
// text-bound's text had to be filled in or upgraded.
type Warning struct {
	LineNum int
	ID      string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d (id %s): %s", w.LineNum, w.ID, w.Message)
}

// ParserOptions configures a Parser.
type ParserOptions struct {
	// Text is the document text that text-bound records are verified
	// against. It is only consulted when HasText is set.
	Text    string
	HasText bool

	// Compat2013 accepts the BioNLP Shared Task 2013 normalization syntax
	Compat2013 bool

	Logger zerolog.Logger
}

// Parser turns lines of an annotation file into records. A Parser is not
// safe for concurrent use.
type Parser struct {
	text       []rune
	hasText    bool
	compat2013 bool
	log        zerolog.Logger
	warnings   []Warning
}

var legacyNormalizations = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`^(Reference) Annotation:(\S+) Referent:(\S+)`), "$1 $2 $3"},
	{regexp.MustCompile(`^(Reference) Referent:(\S+) Annotation:(\S+)`), "$1 $3 $2"},
}

var normalizationPattern = regexp.MustCompile(`^(\S+) (\S+) (\S+?):(\S+)$`)

// NewParser creates a parser
func NewParser(opts ParserOptions) *Parser {
	p := &Parser{
		hasText:    opts.HasText,
		compat2013: opts.Compat2013,
		log:        opts.Logger,
	}
	if opts.HasText {
		p.text = []rune(opts.Text)
	}
	return p
}

// Warnings returns the warnings raised so far
func (p *Parser) Warnings() []Warning {
	return p.warnings
}

// HasText reports whether text-bound records are verified against a text
func (p *Parser) HasText() bool {
	return p.hasText
}

// DocumentText returns the text records are verified against
func (p *Parser) DocumentText() []rune {
	return p.text
}

func (p *Parser) warn(lineNum int, id, format string, args ...interface{}) {
	w := Warning{LineNum: lineNum, ID: id, Message: fmt.Sprintf(format, args...)}
	p.warnings = append(p.warnings, w)
	p.log.Warn().Int("line", lineNum).Str("id", id).Msg(w.Message)
}

// ParseLine parses one line (numbered from 1 for messages). A line
// terminator is ignored. On failure the returned error is a
// *LineSyntaxError whose Fallback keeps the line verbatim.
func (p *Parser) ParseLine(line string, lineNum int) (Annotation, error) {
	line = strings.TrimRight(line, "\r\n")

	tab := strings.IndexByte(line, '\t')
	if tab < 0 {
		return nil, &LineSyntaxError{LineNum: lineNum, Line: line, Err: ErrNoID}
	}
	id, rest := line[:tab], line[tab+1:]
	if !IsValidID(id) {
		return nil, &LineSyntaxError{LineNum: lineNum, Line: line, Err: &InvalidIDError{ID: id}}
	}

	data, tail := rest, ""
	if i := strings.IndexByte(rest, '\t'); i >= 0 {
		data, tail = rest[:i], rest[i:]
	}

	var (
		ann Annotation
		err error
	)
	switch id[0] {
	case 'T':
		ann, err = p.parseTextBound(id, data, tail, lineNum)
	case 'M':
		ann, err = parseModifier(id, data, tail)
	case 'A':
		ann, err = parseAttribute(id, data, tail)
	case 'N':
		ann, err = p.parseNormalization(id, data, tail)
	case 'R':
		ann, err = parseRelation(id, data, tail)
	case 'E':
		ann, err = parseEvent(id, data, tail)
	case '#':
		ann, err = parseComment(id, data, tail)
	case '*':
		ann, err = parseEquiv(data, tail)
		if err != nil {
			// equivalence lines have no identity to reserve
			return nil, &LineSyntaxError{LineNum: lineNum, Line: line, Err: err}
		}
	default:
		err = ErrUnknownPrefix
	}
	if err != nil {
		return nil, &LineSyntaxError{LineNum: lineNum, Line: line, ID: id, Err: err}
	}
	return ann, nil
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func parseModifier(id, data, tail string) (Annotation, error) {
	f := strings.Fields(data)
	if len(f) != 2 {
		return nil, malformed("modifier needs TYPE TARGET")
	}
	return &Attribute{ID: id, Type: f[0], Target: f[1], Tail: tail}, nil
}

func parseAttribute(id, data, tail string) (Annotation, error) {
	parts := strings.SplitN(data, " ", 3)
	for _, part := range parts {
		if part == "" {
			return nil, malformed("attribute needs TYPE TARGET [VALUE]")
		}
	}
	if len(parts) < 2 {
		return nil, malformed("attribute needs TYPE TARGET [VALUE]")
	}
	if _, _, _, err := SplitID(parts[1]); err != nil {
		return nil, malformed("attribute target %q is not an id", parts[1])
	}

	a := &Attribute{ID: id, Type: parts[0], Target: parts[1], Tail: tail}
	if len(parts) == 3 {
		a.Value = parts[2]
	}
	return a, nil
}

func (p *Parser) parseNormalization(id, data, tail string) (Annotation, error) {
	if p.compat2013 {
		for _, legacy := range legacyNormalizations {
			if legacy.re.MatchString(data) {
				data = legacy.re.ReplaceAllString(data, legacy.repl)
				break
			}
		}
	}

	m := normalizationPattern.FindStringSubmatch(data)
	if m == nil {
		return nil, malformed("normalization needs TYPE TARGET REFDB:REFID")
	}
	return &Normalization{ID: id, Type: m[1], Target: m[2], RefDB: m[3], RefID: m[4], Tail: tail}, nil
}

func parseComment(id, data, tail string) (Annotation, error) {
	f := strings.Fields(data)
	if len(f) != 2 {
		return nil, malformed("comment needs TYPE TARGET")
	}
	return &Comment{ID: id, Type: f[0], Target: f[1], Tail: tail}, nil
}

func parseEquiv(data, tail string) (Annotation, error) {
	f := strings.Fields(data)
	if len(f) < 2 {
		return nil, malformed("equiv needs TYPE ID [ID...]")
	}
	return &Equiv{Type: f[0], Members: f[1:], Tail: tail}, nil
}

func splitArg(s string) (Arg, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Arg{}, false
	}
	return Arg{Role: parts[0], Target: parts[1]}, true
}

func parseEvent(id, data, tail string) (Annotation, error) {
	head, argStr := data, ""
	if i := strings.IndexByte(data, ' '); i >= 0 {
		head, argStr = data[:i], data[i:]
	}

	parts := strings.Split(head, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, malformed("event needs TYPE:TRIGGER")
	}

	e := &Event{ID: id, Type: parts[0], Trigger: parts[1], Args: []Arg{}, Tail: tail}
	for _, field := range strings.Fields(argStr) {
		arg, ok := splitArg(field)
		if !ok {
			return nil, malformed("event argument %q is not ROLE:ID", field)
		}
		e.Args = append(e.Args, arg)
	}
	return e, nil
}

func parseRelation(id, data, tail string) (Annotation, error) {
	i := strings.IndexByte(data, ' ')
	if i < 0 {
		return nil, malformed("relation has no arguments")
	}

	fields := strings.Fields(data[i:])
	if len(fields) != 2 {
		return nil, malformed("relation must have exactly two arguments, got %d", len(fields))
	}
	arg1, ok1 := splitArg(fields[0])
	arg2, ok2 := splitArg(fields[1])
	if !ok1 || !ok2 {
		return nil, malformed("relation arguments must be ROLE:ID")
	}
	if arg1.Target == arg2.Target {
		return nil, malformed("relation arguments must not be identical")
	}

	return &Relation{
		ID:        id,
		Type:      data[:i],
		Arg1Label: arg1.Role,
		Arg1:      arg1.Target,
		Arg2Label: arg2.Role,
		Arg2:      arg2.Target,
		Tail:      tail,
	}, nil
}

// splitTextBoundData reads "TYPE START END[;START END...]"
func splitTextBoundData(data string) (string, []span.Span, error) {
	parts := strings.SplitN(data, " ", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", nil, malformed("text-bound needs TYPE START END")
	}

	var spans []span.Span
	for _, piece := range strings.Split(parts[1], ";") {
		se := strings.SplitN(piece, " ", 2)
		if len(se) != 2 {
			return "", nil, malformed("offsets %q are not START END", piece)
		}
		end := strings.TrimRight(se[1], " \t")
		if strings.ContainsAny(end, " \t\n\v\f\r") {
			return "", nil, malformed("offsets %q contain extra fields (space instead of tab?)", piece)
		}
		s, err := strconv.Atoi(se[0])
		if err != nil {
			return "", nil, malformed("start offset %q", se[0])
		}
		e, err := strconv.Atoi(end)
		if err != nil {
			return "", nil, malformed("end offset %q", end)
		}
		spans = append(spans, span.Span{Start: s, End: e})
	}
	return parts[0], spans, nil
}

func (p *Parser) parseTextBound(id, data, tail string, lineNum int) (Annotation, error) {
	typ, spans, err := splitTextBoundData(data)
	if err != nil {
		return nil, err
	}
	if !p.hasText {
		return &TextBound{ID: id, Type: typ, Spans: spans, Tail: tail}, nil
	}
	return p.verifyTextBound(id, typ, spans, tail, lineNum)
}
