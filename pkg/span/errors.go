package span

import "fmt"

// RangeError reports spans that fall outside the document text
type RangeError struct {
	Spans   []Span
	TextLen int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("span: offsets %s out of range for text of length %d", Format(e.Spans), e.TextLen)
}

// OverlapError reports a span list that overlaps itself
type OverlapError struct {
	Spans []Span
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("span: offsets [%s] overlap", Format(e.Spans))
}
