package annotation

import (
	"errors"
	"testing"
)

const sampleText = "Welcome home!\nThe protein BRCA1 binds."

func textParser() *Parser {
	return NewParser(ParserOptions{Text: sampleText, HasText: true})
}

func TestVerifyMatchingText(t *testing.T) {
	p := textParser()
	tb := mustParse(t, p, "T1\tGreeting 0 7\tWelcome").(*TextBound)
	if !tb.WithText || tb.Text != "Welcome" || tb.Tail != "" {
		t.Errorf("unexpected record %#v", tb)
	}
	if len(p.Warnings()) != 0 {
		t.Errorf("unexpected warnings %v", p.Warnings())
	}
}

func TestVerifyKeepsTrailingComment(t *testing.T) {
	p := textParser()
	line := "T1\tGreeting 0 7\tWelcome # keep me"
	tb := mustParse(t, p, line).(*TextBound)
	if tb.Tail != " # keep me" {
		t.Errorf("tail = %q", tb.Tail)
	}
	if tb.String() != line {
		t.Errorf("round trip %q", tb.String())
	}
}

func TestVerifyDiscontinuous(t *testing.T) {
	p := textParser()
	tb := mustParse(t, p, "T1\tPlace 0 2;8 12\tWe home").(*TextBound)
	if tb.Text != "We home" {
		t.Errorf("text = %q", tb.Text)
	}
}

func TestVerifyDiscontinuousOutOfOrder(t *testing.T) {
	p := textParser()
	line := "T1\tPlace 8 12;0 2\tWe home"
	tb := mustParse(t, p, line).(*TextBound)
	if tb.Text != "We home" {
		t.Errorf("text = %q", tb.Text)
	}
	if tb.String() != line {
		t.Errorf("offsets must keep their order: %q", tb.String())
	}
	if len(p.Warnings()) != 0 {
		t.Errorf("unexpected warnings %v", p.Warnings())
	}
}

func TestVerifyFillsMissingDiscontinuousText(t *testing.T) {
	p := textParser()
	tb := mustParse(t, p, "T2\tPlace 8 12;0 2").(*TextBound)
	if tb.Text != "We home" {
		t.Errorf("text = %q", tb.Text)
	}
	if tb.String() != "T2\tPlace 8 12;0 2\tWe home" {
		t.Errorf("serialization %q", tb.String())
	}
	if len(p.Warnings()) != 1 {
		t.Errorf("expected one warning, got %v", p.Warnings())
	}
}

func TestVerifyUpgradesOldStyleDiscontinuousText(t *testing.T) {
	p := textParser()
	tb := mustParse(t, p, "T1\tPlace 0 2;8 12\tWehome").(*TextBound)
	if tb.Text != "We home" {
		t.Errorf("text not upgraded: %q", tb.Text)
	}
	if tb.String() != "T1\tPlace 0 2;8 12\tWe home" {
		t.Errorf("serialization %q", tb.String())
	}
	if len(p.Warnings()) != 1 {
		t.Errorf("expected one warning, got %v", p.Warnings())
	}
}

func TestVerifyFillsMissingText(t *testing.T) {
	p := textParser()
	tb := mustParse(t, p, "T3\tProtein 26 31").(*TextBound)
	if tb.Text != "BRCA1" {
		t.Errorf("text = %q", tb.Text)
	}
	if tb.String() != "T3\tProtein 26 31\tBRCA1" {
		t.Errorf("serialization %q", tb.String())
	}
	if len(p.Warnings()) != 1 || p.Warnings()[0].ID != "T3" {
		t.Errorf("expected a warning for T3, got %v", p.Warnings())
	}
}

func TestVerifyNullSpanNeedsNoText(t *testing.T) {
	p := textParser()
	tb := mustParse(t, p, "T1\tMarker 5 5").(*TextBound)
	if tb.Text != "" {
		t.Errorf("text = %q", tb.Text)
	}
	if len(p.Warnings()) != 0 {
		t.Errorf("null span should not warn: %v", p.Warnings())
	}
}

func TestVerifyCountsCodePoints(t *testing.T) {
	p := NewParser(ParserOptions{Text: "Ångström über", HasText: true})
	tb := mustParse(t, p, "T1\tWord 9 13\tüber").(*TextBound)
	if tb.Text != "über" {
		t.Errorf("text = %q", tb.Text)
	}
}

func TestVerifyRejects(t *testing.T) {
	cases := []struct {
		line string
		want error
	}{
		{"T1\tGreeting 0 7\tWelcomx", ErrTextMismatch},
		{"T1\tGreeting 0 7\tWel", ErrTextMismatch},
		{"T1\tGreeting 0 7\tWelcomehome", ErrMalformed},
		{"T1\tGreeting 0 500\tWelcome", ErrSpanRange},
		{"T1\tGreeting -1 7\tWelcome", ErrSpanRange},
		{"T1\tGreeting 7 2\tWelcome", ErrSpanRange},
		{"T1\tGreeting 0 5;3 7\tWelco come", ErrSpanRange},
	}

	for _, c := range cases {
		p := textParser()
		_, err := p.ParseLine(c.line, 1)
		if !errors.Is(err, c.want) {
			t.Errorf("%q: got %v, want %v", c.line, err, c.want)
			continue
		}
		var lse *LineSyntaxError
		if errors.As(err, &lse) && lse.Fallback().Kind() != KindUnparsed {
			t.Errorf("%q: expected unparsed fallback", c.line)
		}
	}
}

func TestWithoutTextKeepsTailVerbatim(t *testing.T) {
	p := NewParser(ParserOptions{})
	tb := mustParse(t, p, "T1\tGreeting 0 7\tanything at all").(*TextBound)
	if tb.WithText {
		t.Error("record marked as verified without document text")
	}
	if tb.Tail != "\tanything at all" {
		t.Errorf("tail = %q", tb.Tail)
	}
}
