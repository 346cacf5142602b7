package annotator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nainya/annstore/pkg/span"
)

// SpanRequest creates a text-bound (and event) or edits an existing one
type SpanRequest struct {
	// ID of the text-bound or event to edit; empty creates a new one
	ID      string
	Offsets []span.Span
	Type    string

	// Attributes by type. An empty value is a binary attribute.
	Attributes     map[string]string
	Normalizations []NormRef

	// Comment is the AnnotatorNotes text; empty removes it
	Comment string
}

// NormRef is a requested normalization
type NormRef struct {
	RefDB   string
	RefID   string
	RefText string
}

// ArcRequest creates or edits a relation, equivalence or event argument
type ArcRequest struct {
	Origin string
	Target string
	Type   string

	// OldType and OldTarget identify the arc being edited
	OldType   string
	OldTarget string

	Attributes map[string]string
	Comment    string
}

// Undo holds what is needed to revert a span edit
type Undo struct {
	Action         string // "add_tb" or "mod_tb"
	ID             string
	Offsets        []span.Span
	Type           string
	Attributes     map[string]string
	Normalizations []NormRef
	Comment        string
}

const (
	UndoAdd    = "add_tb"
	UndoModify = "mod_tb"
)

// ParseOffsets reads offsets sent as a JSON list of [start, end] pairs
func ParseOffsets(data string) ([]span.Span, error) {
	var pairs [][]json.Number
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&pairs); err != nil {
		return nil, requestErr("offsets", "expected JSON, failed to parse %q", data)
	}
	spans := make([]span.Span, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 {
			return nil, requestErr("offsets", "expected list of int pairs, got %q", data)
		}
		s, err1 := p[0].Int64()
		e, err2 := p[1].Int64()
		if err1 != nil || err2 != nil {
			return nil, requestErr("offsets", "expected list of int pairs, got %q", data)
		}
		spans = append(spans, span.Span{Start: int(s), End: int(e)})
	}
	return spans, nil
}

// ParseAttributes reads attributes sent as a JSON object. false values are
// dropped and true becomes a binary attribute.
func ParseAttributes(data string) (map[string]string, error) {
	attrs := make(map[string]string)
	if strings.TrimSpace(data) == "" {
		return attrs, nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, requestErr("attributes", "failed to parse %q", data)
	}
	for k, v := range raw {
		switch val := v.(type) {
		case bool:
			if val {
				attrs[k] = ""
			}
		case string:
			attrs[k] = val
		case nil:
		default:
			attrs[k] = fmt.Sprint(val)
		}
	}
	return attrs, nil
}

// ParseNormalizations reads normalizations sent as a JSON list of
// [refdb, refid, reftext] triples
func ParseNormalizations(data string) ([]NormRef, error) {
	if strings.TrimSpace(data) == "" {
		return nil, nil
	}
	var raw [][]string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, requestErr("normalizations", "failed to parse %q", data)
	}
	norms := make([]NormRef, 0, len(raw))
	for _, n := range raw {
		if len(n) < 2 || len(n) > 3 {
			return nil, requestErr("normalizations", "expected [refdb, refid, reftext], got %v", n)
		}
		ref := NormRef{RefDB: n[0], RefID: n[1]}
		if len(n) == 3 {
			ref.RefText = n[2]
		}
		norms = append(norms, ref)
	}
	return norms, nil
}

// ParseRoles reads the roles to split on, sent as a JSON list of strings
func ParseRoles(data string) ([]string, error) {
	var roles []string
	if err := json.Unmarshal([]byte(data), &roles); err != nil {
		return nil, requestErr("roles", "failed to parse %q", data)
	}
	return roles, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// validateAttributes rejects values the line format cannot hold
func validateAttributes(op string, attrs map[string]string) error {
	for k, v := range attrs {
		if k == "" || strings.ContainsAny(k, " \t\n") || strings.ContainsAny(v, " \t\n") {
			return requestErr(op, "invalid attribute %q=%q", k, v)
		}
	}
	return nil
}
