// ABOUTME: Offset arithmetic over (start, end) character ranges
// ABOUTME: Canonical form, equality, self-overlap and text extraction

package span

import (
	"fmt"
	"sort"
	"strings"
)

// Separator joins the texts of the pieces of a discontinuous span.
const Separator = " "

// Span is a half-open range [Start, End) of code-point offsets into a document text.
type Span struct {
	Start int
	End   int
}

func (s Span) String() string {
	return fmt.Sprintf("%d %d", s.Start, s.End)
}

// Len returns the number of characters covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Canonical returns the minimal sorted list of non-overlapping spans covering
// the same characters. Ranges that touch or overlap are merged.
func Canonical(spans []Span) []Span {
	if len(spans) == 0 {
		return []Span{}
	}

	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	res := make([]Span, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start <= cur.End {
			if next.End > cur.End {
				cur.End = next.End
			}
			continue
		}
		res = append(res, cur)
		cur = next
	}
	res = append(res, cur)

	return res
}

// Equal reports whether two span lists identify the same characters
func Equal(a, b []Span) bool {
	if identical(a, b) {
		return true
	}
	return identical(Canonical(a), Canonical(b))
}

func identical(a, b []Span) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Overlaps reports whether any two spans in the list overlap each other.
// Spans that merely touch ([0,3) and [3,5)) do not overlap.
func Overlaps(spans []Span) bool {
	for i := 0; i < len(spans); i++ {
		a := spans[i]
		for j := i + 1; j < len(spans); j++ {
			b := spans[j]
			if (b.Start <= a.Start && a.Start < b.End) || (b.Start < a.End && a.End < b.End) ||
				(a.Start <= b.Start && b.Start < a.End) || (a.Start < b.End && b.End < a.End) {
				return true
			}
		}
	}
	return false
}

// TextFor returns the text covered by the canonical form of spans, with the
// pieces joined by sep.
func TextFor(text []rune, spans []Span, sep string) (string, error) {
	for _, s := range spans {
		if s.Start > s.End {
			return "", &RangeError{Spans: spans, TextLen: len(text)}
		}
	}

	canon := Canonical(spans)
	if len(canon) > 0 && (canon[0].Start < 0 || canon[len(canon)-1].End > len(text)) {
		return "", &RangeError{Spans: spans, TextLen: len(text)}
	}

	parts := make([]string, len(canon))
	for i, s := range canon {
		parts[i] = string(text[s.Start:s.End])
	}
	return strings.Join(parts, sep), nil
}

// Format renders spans in the standoff form "START END;START END"
func Format(spans []Span) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		parts[i] = s.String()
	}
	return strings.Join(parts, ";")
}

// Clone returns a copy of spans that shares no memory with the input
func Clone(spans []Span) []Span {
	if spans == nil {
		return nil
	}
	out := make([]Span, len(spans))
	copy(out, spans)
	return out
}

// Sorted returns a copy of spans ordered by position. Unlike Canonical it
// keeps adjacent pieces apart.
func Sorted(spans []Span) []Span {
	out := Clone(spans)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}
