// ABOUTME: Annotation records of the standoff format, one struct per line kind
// ABOUTME: Each record serializes to exactly one line and reports its dependencies

package annotation

import (
	"fmt"
	"strings"

	"github.com/nainya/annstore/pkg/span"
)

// Kind identifies the record kind of an annotation line.
type Kind int

const (
	KindTextBound Kind = iota
	KindEvent
	KindRelation
	KindAttribute
	KindNormalization
	KindComment
	KindEquiv
	KindUnparsed
	KindUnknown
)

var kindNames = map[Kind]string{
	KindTextBound:     "textbound",
	KindEvent:         "event",
	KindRelation:      "relation",
	KindAttribute:     "attribute",
	KindNormalization: "normalization",
	KindComment:       "comment",
	KindEquiv:         "equiv",
	KindUnparsed:      "unparsed",
	KindUnknown:       "unknown",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// StatusType is the reserved comment type holding document workflow state.
const StatusType = "STATUS"

// Annotation is one line of an annotation document. The set of
// implementations is closed; switch on the concrete type or on Kind.
type Annotation interface {
	Kind() Kind
	// Identifier returns the record id, or "" for records without one.
	Identifier() string
	// String renders the record as a single line without a terminator.
	String() string
	Deps() Deps
	Clone() Annotation

	annotation()
}

// Deps holds the ids a record refers to. Hard dependencies may not be
// deleted while the record exists; soft ones may.
type Deps struct {
	Soft []string
	Hard []string
}

// All returns every referenced id, soft ones first, without duplicates.
func (d Deps) All() []string {
	out := make([]string, 0, len(d.Soft)+len(d.Hard))
	seen := make(map[string]bool, len(d.Soft)+len(d.Hard))
	for _, ids := range [][]string{d.Soft, d.Hard} {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Contains reports whether id is a soft or hard dependency.
func (d Deps) Contains(id string) bool {
	for _, ids := range [][]string{d.Soft, d.Hard} {
		for _, x := range ids {
			if x == id {
				return true
			}
		}
	}
	return false
}

func uniq(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// TextBound marks one or more spans of the document text.
//
// When the record was read or created with access to the document text,
// WithText is set and Text holds the covered text; Tail then holds whatever
// followed that text on the line. Without document text the whole remainder
// of the line (including its leading tab) is kept in Tail.
type TextBound struct {
	ID       string
	Type     string
	Spans    []span.Span
	Text     string
	WithText bool
	Tail     string
}

func (a *TextBound) Kind() Kind         { return KindTextBound }
func (a *TextBound) Identifier() string { return a.ID }
func (a *TextBound) Deps() Deps         { return Deps{} }
func (a *TextBound) annotation()        {}

func (a *TextBound) String() string {
	if a.WithText {
		return fmt.Sprintf("%s\t%s %s\t%s%s", a.ID, a.Type, span.Format(a.Spans), a.Text, a.Tail)
	}
	return fmt.Sprintf("%s\t%s %s%s", a.ID, a.Type, span.Format(a.Spans), a.Tail)
}

func (a *TextBound) Clone() Annotation {
	c := *a
	c.Spans = span.Clone(a.Spans)
	return &c
}

// FirstStart returns the smallest start offset
func (a *TextBound) FirstStart() int {
	min := a.Spans[0].Start
	for _, s := range a.Spans[1:] {
		if s.Start < min {
			min = s.Start
		}
	}
	return min
}

// LastEnd returns the largest end offset
func (a *TextBound) LastEnd() int {
	max := a.Spans[0].End
	for _, s := range a.Spans[1:] {
		if s.End > max {
			max = s.End
		}
	}
	return max
}

// SameSpan reports whether both records cover exactly the same set of spans.
func (a *TextBound) SameSpan(other *TextBound) bool {
	set := make(map[span.Span]bool, len(a.Spans))
	for _, s := range a.Spans {
		set[s] = true
	}
	oset := make(map[span.Span]bool, len(other.Spans))
	for _, s := range other.Spans {
		if !set[s] {
			return false
		}
		oset[s] = true
	}
	return len(set) == len(oset)
}

// Contains reports whether every span of other lies inside some span of a.
func (a *TextBound) Contains(other *TextBound) bool {
	for _, o := range other.Spans {
		inside := false
		for _, s := range a.Spans {
			if o.Start >= s.Start && o.End <= s.End {
				inside = true
				break
			}
		}
		if !inside {
			return false
		}
	}
	return true
}

// Arg is one (role, target) participant of an event.
type Arg struct {
	Role   string
	Target string
}

// Event is a typed n-ary annotation anchored on a trigger text-bound.
type Event struct {
	ID      string
	Type    string
	Trigger string
	Args    []Arg
	Tail    string
}

func (a *Event) Kind() Kind         { return KindEvent }
func (a *Event) Identifier() string { return a.ID }
func (a *Event) annotation()        {}

func (a *Event) String() string {
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		args[i] = arg.Role + ":" + arg.Target
	}
	return fmt.Sprintf("%s\t%s:%s %s%s", a.ID, a.Type, a.Trigger, strings.Join(args, " "), a.Tail)
}

// Deps: the trigger is always hard. Arguments are soft once there is more
// than one of them.
func (a *Event) Deps() Deps {
	d := Deps{Hard: []string{a.Trigger}}
	ids := make([]string, len(a.Args))
	for i, arg := range a.Args {
		ids[i] = arg.Target
	}
	if len(ids) > 1 {
		d.Soft = uniq(ids)
	} else {
		d.Hard = uniq(append(d.Hard, ids...))
	}
	return d
}

func (a *Event) Clone() Annotation {
	c := *a
	c.Args = append([]Arg(nil), a.Args...)
	return &c
}

// AddArgument appends a participant. A role without a numeric suffix gets
// the first free one among the existing arguments (Theme, Theme2, Theme3...).
func (a *Event) AddArgument(role, target string) {
	base, num := SplitRole(role)
	if num == "" {
		used := make(map[string]bool)
		for _, arg := range a.Args {
			b, n := SplitRole(arg.Role)
			if b == base {
				used[n] = true
			}
		}
		for i := 1; used[num]; i++ {
			num = fmt.Sprint(i + 1)
		}
	}
	a.Args = append(a.Args, Arg{Role: base + num, Target: target})
}

// Relation is a directed binary relation between two annotations.
type Relation struct {
	ID        string
	Type      string
	Arg1Label string
	Arg1      string
	Arg2Label string
	Arg2      string
	Tail      string
}

func (a *Relation) Kind() Kind         { return KindRelation }
func (a *Relation) Identifier() string { return a.ID }
func (a *Relation) annotation()        {}

func (a *Relation) String() string {
	return fmt.Sprintf("%s\t%s %s:%s %s:%s%s", a.ID, a.Type, a.Arg1Label, a.Arg1, a.Arg2Label, a.Arg2, a.Tail)
}

func (a *Relation) Deps() Deps {
	return Deps{Hard: uniq([]string{a.Arg1, a.Arg2})}
}

func (a *Relation) Clone() Annotation {
	c := *a
	return &c
}

// Attribute assigns a value of some attribute type to a target annotation.
// An empty Value is a binary attribute (present means true); legacy "M"
// modifier lines always produce one.
type Attribute struct {
	ID     string
	Type   string
	Target string
	Value  string
	Tail   string
}

func (a *Attribute) Kind() Kind         { return KindAttribute }
func (a *Attribute) Identifier() string { return a.ID }
func (a *Attribute) annotation()        {}

// Binary reports whether the attribute carries no explicit value
func (a *Attribute) Binary() bool { return a.Value == "" }

func (a *Attribute) String() string {
	if a.Binary() {
		return fmt.Sprintf("%s\t%s %s%s", a.ID, a.Type, a.Target, a.Tail)
	}
	return fmt.Sprintf("%s\t%s %s %s%s", a.ID, a.Type, a.Target, a.Value, a.Tail)
}

func (a *Attribute) Deps() Deps { return Deps{Hard: []string{a.Target}} }

func (a *Attribute) Clone() Annotation {
	c := *a
	return &c
}

// Normalization links a target annotation to an entry of an external resource.
type Normalization struct {
	ID     string
	Type   string
	Target string
	RefDB  string
	RefID  string
	Tail   string
}

func (a *Normalization) Kind() Kind         { return KindNormalization }
func (a *Normalization) Identifier() string { return a.ID }
func (a *Normalization) annotation()        {}

// RefText is the optional human-readable text of the referenced entry.
func (a *Normalization) RefText() string {
	return strings.TrimRight(strings.TrimLeft(a.Tail, "\t"), "\n")
}

// SetRefText replaces the tail so that RefText returns text.
func (a *Normalization) SetRefText(text string) {
	a.Tail = "\t" + text
}

func (a *Normalization) String() string {
	return fmt.Sprintf("%s\t%s %s %s:%s%s", a.ID, a.Type, a.Target, a.RefDB, a.RefID, a.Tail)
}

func (a *Normalization) Deps() Deps { return Deps{Hard: []string{a.Target}} }

func (a *Normalization) Clone() Annotation {
	c := *a
	return &c
}

// Comment is a one-line note attached to a target. Comments of type
// StatusType carry the document status in Target instead.
type Comment struct {
	ID     string
	Type   string
	Target string
	Tail   string
}

func (a *Comment) Kind() Kind         { return KindComment }
func (a *Comment) Identifier() string { return a.ID }
func (a *Comment) annotation()        {}

// Text returns the comment body
func (a *Comment) Text() string { return strings.TrimSpace(a.Tail) }

func (a *Comment) String() string {
	return fmt.Sprintf("%s\t%s %s%s", a.ID, a.Type, a.Target, a.Tail)
}

func (a *Comment) Deps() Deps { return Deps{Hard: []string{a.Target}} }

func (a *Comment) Clone() Annotation {
	c := *a
	return &c
}

// Equiv groups annotations that are equivalent. It has no id of its own.
type Equiv struct {
	Type    string
	Members []string
	Tail    string
}

func (a *Equiv) Kind() Kind         { return KindEquiv }
func (a *Equiv) Identifier() string { return "" }
func (a *Equiv) annotation()        {}

func (a *Equiv) String() string {
	return fmt.Sprintf("%s\t%s %s%s", EquivID, a.Type, strings.Join(a.Members, " "), a.Tail)
}

// Deps: members are hard while the group has two, soft once it has more.
func (a *Equiv) Deps() Deps {
	if len(a.Members) > 2 {
		return Deps{Soft: uniq(a.Members)}
	}
	return Deps{Hard: uniq(a.Members)}
}

func (a *Equiv) Clone() Annotation {
	c := *a
	c.Members = append([]string(nil), a.Members...)
	return &c
}

// Has reports whether id is a member of the group
func (a *Equiv) Has(id string) bool {
	for _, m := range a.Members {
		if m == id {
			return true
		}
	}
	return false
}

// Unparsed is a line whose id could be read but whose body could not. The
// id stays reserved and the line is written back unchanged.
type Unparsed struct {
	ID   string
	Line string
}

func (a *Unparsed) Kind() Kind         { return KindUnparsed }
func (a *Unparsed) Identifier() string { return a.ID }
func (a *Unparsed) String() string     { return a.Line }
func (a *Unparsed) Deps() Deps         { return Deps{} }
func (a *Unparsed) annotation()        {}

func (a *Unparsed) Clone() Annotation {
	c := *a
	return &c
}

// Unknown is a line from which not even an id could be read.
type Unknown struct {
	Line string
}

func (a *Unknown) Kind() Kind         { return KindUnknown }
func (a *Unknown) Identifier() string { return "" }
func (a *Unknown) String() string     { return a.Line }
func (a *Unknown) Deps() Deps         { return Deps{} }
func (a *Unknown) annotation()        {}

func (a *Unknown) Clone() Annotation {
	c := *a
	return &c
}

// TypeOf returns the annotation type of typed records and "" otherwise.
func TypeOf(a Annotation) string {
	switch r := a.(type) {
	case *TextBound:
		return r.Type
	case *Event:
		return r.Type
	case *Relation:
		return r.Type
	case *Attribute:
		return r.Type
	case *Normalization:
		return r.Type
	case *Comment:
		return r.Type
	case *Equiv:
		return r.Type
	}
	return ""
}

// Reference identifies a record for change reporting. Attributes and
// normalizations are reported through their target; equivalence groups
// through ("equiv", type, first member).
func Reference(a Annotation) []string {
	switch r := a.(type) {
	case *Attribute:
		return []string{r.Target}
	case *Normalization:
		return []string{r.Target}
	case *Equiv:
		first := ""
		if len(r.Members) > 0 {
			first = r.Members[0]
		}
		return []string{"equiv", r.Type, first}
	case *Unknown:
		return nil
	}
	return []string{a.Identifier()}
}
