package annotation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nainya/annstore/pkg/span"
)

// verifyTextBound checks a text-bound's offsets and text against the
// document. A missing text is filled in from the document and text written
// by old versions without separators between discontinuous pieces is
// upgraded; both raise a warning since they change the file on write.
func (p *Parser) verifyTextBound(id, typ string, spans []span.Span, tail string, lineNum int) (Annotation, error) {
	for _, s := range spans {
		switch {
		case s.Start > s.End:
			return nil, fmt.Errorf("%w: start %d after end %d", ErrSpanRange, s.Start, s.End)
		case s.Start < 0:
			return nil, fmt.Errorf("%w: negative start %d", ErrSpanRange, s.Start)
		case s.End > len(p.text):
			return nil, fmt.Errorf("%w: end %d exceeds text length %d", ErrSpanRange, s.End, len(p.text))
		}
	}
	if span.Overlaps(spans) {
		return nil, fmt.Errorf("%w: %s overlap", ErrSpanRange, span.Format(spans))
	}

	// Pieces are joined in position order whatever order the line lists them in
	pieces := make([]string, len(spans))
	spanLen := (len(spans) - 1) * utf8.RuneCountInString(span.Separator)
	for i, s := range span.Sorted(spans) {
		pieces[i] = string(p.text[s.Start:s.End])
		spanLen += s.Len()
	}
	refText := strings.Join(pieces, span.Separator)

	tb := &TextBound{ID: id, Type: typ, Spans: spans, WithText: true}

	if strings.TrimSpace(tail) == "" {
		if spanLen > 0 {
			p.warn(lineNum, id, "text-bound missing text, filling from document")
		}
		tb.Text = refText
		return tb, nil
	}
	if tail[0] != '\t' {
		return nil, malformed("missing tab before text")
	}

	body := tail[1:]
	var rest string
	switch {
	case strings.HasPrefix(body, refText):
		rest = body[len(refText):]
	case len(spans) > 1 && strings.HasPrefix(body, strings.Join(pieces, "")):
		p.warn(lineNum, id, "replacing old-style discontinuous text %q", strings.Join(pieces, ""))
		rest = ""
	case utf8.RuneCountInString(body) < spanLen:
		return nil, fmt.Errorf("%w: text %q shorter than marked spans %s", ErrTextMismatch, body, span.Format(spans))
	default:
		return nil, fmt.Errorf("%w: text %q, document has %q", ErrTextMismatch, body, refText)
	}

	if rest != "" {
		if r, _ := utf8.DecodeRuneInString(rest); !unicode.IsSpace(r) {
			return nil, malformed("text %q not separated from rest of line", refText)
		}
	}

	tb.Text = refText
	tb.Tail = rest
	return tb, nil
}
