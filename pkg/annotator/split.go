package annotator

import (
	"fmt"

	"github.com/nainya/annstore/pkg/annotation"
)

// SplitEvent splits an event with several arguments of the given roles into
// one event per combination of those arguments. The event itself keeps the
// first combination; every other one becomes a copy under a new id.
// Attributes, notes and normalizations of the event are copied to each new
// event and events taking it as an argument get the new events as
// arguments too. An event referenced by a relation cannot be split.
func (e *Engine) SplitEvent(id string, roles []string) (*Changes, error) {
	return e.atomically("split_event", func(ch *Changes) error {
		ann, err := e.doc.Get(id)
		if err != nil {
			return err
		}
		ev, ok := ann.(*annotation.Event)
		if !ok {
			return &SplitError{ID: id, Reason: fmt.Sprintf("cannot split an annotation of kind %s", ann.Kind())}
		}

		roles = uniqueRoles(roles)
		if len(roles) == 0 {
			return &SplitError{ID: id, Reason: "no roles to split on"}
		}
		wanted := make(map[string]bool, len(roles))
		for _, r := range roles {
			wanted[r] = true
		}

		split := make(map[string][]string)
		var kept []annotation.Arg
		for _, arg := range ev.Args {
			base, _ := annotation.SplitRole(arg.Role)
			if wanted[base] {
				split[base] = append(split[base], arg.Target)
			} else {
				kept = append(kept, arg)
			}
		}
		for _, r := range roles {
			if n := len(split[r]); n < 2 {
				return &SplitError{ID: id, Reason: fmt.Sprintf("only %d %s arguments (need two or more)", n, r)}
			}
		}

		referencing := e.doc.Referencing(id)
		for _, ref := range referencing {
			switch ref.(type) {
			case *annotation.Event, *annotation.Attribute, *annotation.Comment, *annotation.Normalization:
			default:
				return &SplitError{
					ID:     id,
					Reason: fmt.Sprintf("%s references it and cannot be copied per split event", ref.String()),
				}
			}
		}

		combos := [][]annotation.Arg{{}}
		for _, r := range roles {
			var next [][]annotation.Arg
			for _, target := range split[r] {
				for _, c := range combos {
					combo := append(append([]annotation.Arg(nil), c...), annotation.Arg{Role: r, Target: target})
					next = append(next, combo)
				}
			}
			combos = next
		}

		var created []string
		for i, combo := range combos {
			args := append(append([]annotation.Arg{}, kept...), combo...)
			if i == 0 {
				before := ev.String()
				ev.Args = args
				ch.Changed(before, ev)
				continue
			}
			clone := ev.Clone().(*annotation.Event)
			clone.ID = e.doc.NewID("E")
			clone.Args = args
			if err := e.doc.Add(clone); err != nil {
				return err
			}
			ch.addition(clone)
			created = append(created, clone.ID)
		}

		for _, ref := range referencing {
			if err := e.copyReference(ch, ref, id, created); err != nil {
				return err
			}
		}
		return nil
	})
}

// copyReference makes ref point at each of the new events as it points at
// the original one
func (e *Engine) copyReference(ch *Changes, ref annotation.Annotation, original string, created []string) error {
	if ev, ok := ref.(*annotation.Event); ok {
		before := ev.String()
		var roles []string
		for _, arg := range ev.Args {
			if arg.Target == original {
				roles = append(roles, arg.Role)
			}
		}
		for _, role := range roles {
			base, _ := annotation.SplitRole(role)
			for _, id := range created {
				ev.AddArgument(base, id)
			}
		}
		if len(roles) > 0 {
			ch.Changed(before, ev)
		}
		return nil
	}

	prefix, err := annotation.IDPrefix(ref.Identifier())
	if err != nil {
		return err
	}
	for _, id := range created {
		clone := ref.Clone()
		switch c := clone.(type) {
		case *annotation.Attribute:
			c.ID, c.Target = e.doc.NewID(prefix), id
		case *annotation.Comment:
			c.ID, c.Target = e.doc.NewID(prefix), id
		case *annotation.Normalization:
			c.ID, c.Target = e.doc.NewID(prefix), id
		}
		if err := e.doc.Add(clone); err != nil {
			return err
		}
		ch.addition(clone)
	}
	return nil
}

func uniqueRoles(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	var out []string
	for _, r := range roles {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
