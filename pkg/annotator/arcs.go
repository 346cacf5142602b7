package annotator

import (
	"fmt"
	"strings"

	"github.com/nainya/annstore/pkg/annotation"
)

// CreateArc creates or edits the arc from origin to target. Equivalence
// types add to an equivalence group, relation types create or edit a
// relation, and anything else is an event argument role. An edit that
// moves an arc between these kinds deletes the old arc first.
func (e *Engine) CreateArc(req ArcRequest) (*Changes, error) {
	if err := validateAttributes("create_arc", req.Attributes); err != nil {
		return nil, err
	}
	if strings.Contains(req.Comment, "\n") {
		return nil, requestErr("create_arc", "comment must be a single line")
	}
	if req.Type == "" || strings.ContainsAny(req.Type, " \t\n:") {
		return nil, requestErr("create_arc", "invalid type %q", req.Type)
	}

	return e.atomically("create_arc", func(ch *Changes) error {
		origin, err := e.doc.Get(req.Origin)
		if err != nil {
			return err
		}
		target, err := e.doc.Get(req.Target)
		if err != nil {
			return err
		}

		oldType, oldTarget := req.OldType, req.OldTarget
		if oldType != "" && (e.conf.IsRelationType(oldType) != e.conf.IsRelationType(req.Type) ||
			e.conf.IsEquivType(oldType) != e.conf.IsEquivType(req.Type)) {
			if oldTarget == "" {
				oldTarget = req.Target
			}
			if err := e.deleteArc(ch, origin, oldTarget, oldType); err != nil {
				return err
			}
			oldType, oldTarget = "", ""
		}

		var ann annotation.Annotation
		switch {
		case e.conf.IsEquivType(req.Type):
			if len(req.Attributes) > 0 {
				ch.warn("attributes on equivalences are not supported, ignored")
			}
			ann, err = e.createEquiv(ch, origin.Identifier(), target.Identifier(), req.Type, oldType, oldTarget)
		case e.conf.IsRelationType(req.Type):
			ann, err = e.createRelation(ch, origin.Identifier(), target.Identifier(), req, oldType, oldTarget)
		default:
			err = e.createArgument(ch, origin, target.Identifier(), req.Type, oldType, oldTarget)
		}
		if err != nil {
			return err
		}

		if rel, ok := ann.(*annotation.Relation); ok {
			return e.setComment(ch, rel.ID, req.Comment, &Undo{})
		}
		if req.Comment != "" {
			ch.warn(fmt.Sprintf("comment on %s arc is not supported, ignored", req.Type))
		}
		return nil
	})
}

func (e *Engine) createEquiv(ch *Changes, origin, target, typ, oldType, oldTarget string) (annotation.Annotation, error) {
	if oldType == "" {
		if oldTarget != "" {
			return nil, requestErr("create_arc", "old target %s given without old type", oldTarget)
		}
		if origin == target {
			return nil, requestErr("create_arc", "%s cannot be equivalent to itself", origin)
		}
		if err := e.doc.Add(&annotation.Equiv{Type: typ, Members: []string{origin, target}}); err != nil {
			return nil, err
		}
		// The new pair may have been merged into an existing group
		for _, eq := range e.doc.Equivs() {
			if eq.Type == typ && eq.Has(origin) && eq.Has(target) {
				ch.addition(eq)
				return eq, nil
			}
		}
		return nil, nil
	}

	if oldType != typ {
		ch.warn("changing the type of an equivalence is not supported, ignored")
	}
	if oldTarget != "" && oldTarget != target {
		ch.warn("moving an equivalence to another target is not supported, ignored")
	}
	return nil, nil
}

func (e *Engine) createRelation(ch *Changes, origin, target string, req ArcRequest, oldType, oldTarget string) (annotation.Annotation, error) {
	if origin == target {
		return nil, requestErr("create_arc", "relation from %s to itself", origin)
	}

	var rel *annotation.Relation
	if oldType != "" || oldTarget != "" {
		soughtTarget, soughtType := target, req.Type
		if oldTarget != "" {
			soughtTarget = oldTarget
		}
		if oldType != "" {
			soughtType = oldType
		}
		rel = e.findRelation(origin, soughtTarget, soughtType)
		if rel == nil {
			return nil, requestErr("create_arc", "no %s relation from %s to %s", soughtType, origin, soughtTarget)
		}
		if rel.Arg2 != target || rel.Type != req.Type {
			before := rel.String()
			rel.Arg2 = target
			rel.Type = req.Type
			ch.Changed(before, rel)
		}
	} else {
		arg1, arg2, ok := e.conf.RelationArgLabels(req.Type)
		if !ok {
			return nil, requestErr("create_arc", "relation type %s has no argument labels", req.Type)
		}
		rel = &annotation.Relation{
			ID:        e.doc.NewID("R"),
			Type:      req.Type,
			Arg1Label: arg1,
			Arg1:      origin,
			Arg2Label: arg2,
			Arg2:      target,
		}
		if err := e.doc.Add(rel); err != nil {
			return nil, err
		}
		ch.addition(rel)
	}

	e.setAttributes(ch, rel.ID, req.Attributes, &Undo{})
	return rel, nil
}

// createArgument adds role:target to an event, or turns a plain
// text-bound into an event with that argument
func (e *Engine) createArgument(ch *Changes, origin annotation.Annotation, target, role, oldRole, oldTarget string) error {
	switch o := origin.(type) {
	case *annotation.Event:
		arg := annotation.Arg{Role: role, Target: target}
		if oldRole == "" && oldTarget == "" {
			if !hasArg(o, arg) {
				before := o.String()
				o.AddArgument(role, target)
				ch.Changed(before, o)
			}
			return nil
		}

		old := annotation.Arg{Role: oldRole, Target: oldTarget}
		if old.Role == "" {
			old.Role = role
		}
		if old.Target == "" {
			old.Target = target
		}
		if hasArg(o, old) && !hasArg(o, arg) {
			before := o.String()
			removeArg(o, old)
			o.AddArgument(role, target)
			ch.Changed(before, o)
		}
		return nil

	case *annotation.TextBound:
		ev := &annotation.Event{
			ID:      e.doc.NewID("E"),
			Type:    o.Type,
			Trigger: o.ID,
			Args:    []annotation.Arg{{Role: role, Target: target}},
		}
		if err := e.doc.Add(ev); err != nil {
			return err
		}
		ch.addition(ev)
		return nil
	}
	return requestErr("create_arc", "%s cannot take arguments", origin.Identifier())
}

// DeleteArc deletes the arc of the given type from origin to target. For
// equivalences the order of origin and target does not matter.
func (e *Engine) DeleteArc(origin, target, typ string) (*Changes, error) {
	return e.atomically("delete_arc", func(ch *Changes) error {
		o, err := e.doc.Get(origin)
		if err != nil {
			return err
		}
		return e.deleteArc(ch, o, target, typ)
	})
}

func (e *Engine) deleteArc(ch *Changes, origin annotation.Annotation, target, typ string) error {
	id := origin.Identifier()
	switch {
	case e.conf.IsEquivType(typ):
		for _, eq := range e.doc.Equivs() {
			if eq.Type != typ || !eq.Has(id) || !eq.Has(target) {
				continue
			}
			before := eq.String()
			members := eq.Members[:0:0]
			for _, m := range eq.Members {
				if m != id && m != target {
					members = append(members, m)
				}
			}
			eq.Members = members
			if len(eq.Members) >= 2 {
				ch.Changed(before, eq)
				continue
			}
			if err := e.doc.Remove(eq, ch); err != nil {
				return err
			}
		}
		return nil

	case e.conf.IsRelationType(typ):
		for _, rel := range e.doc.Relations() {
			if rel.Type == typ && rel.Arg1 == id && rel.Arg2 == target {
				if err := e.doc.Remove(rel, ch); err != nil {
					return err
				}
			}
		}
		return nil
	}

	ev, ok := origin.(*annotation.Event)
	if !ok || !e.conf.IsEventType(ev.Type) {
		return requestErr("delete_arc", "unknown annotation types for delete (%s from %s)", typ, id)
	}
	arg := annotation.Arg{Role: typ, Target: target}
	if hasArg(ev, arg) {
		before := ev.String()
		removeArg(ev, arg)
		ch.Changed(before, ev)
	}
	return nil
}

// ReverseArc swaps the arguments of the relation from origin to target
func (e *Engine) ReverseArc(origin, target, typ string) (*Changes, error) {
	if e.conf.IsEquivType(typ) {
		return nil, requestErr("reverse_arc", "cannot reverse equivalence %s", typ)
	}
	if !e.conf.IsRelationType(typ) {
		return nil, requestErr("reverse_arc", "can only reverse configured binary relations, not %s", typ)
	}
	return e.atomically("reverse_arc", func(ch *Changes) error {
		rel := e.findRelation(origin, target, typ)
		if rel == nil {
			return requestErr("reverse_arc", "no %s relation from %s to %s", typ, origin, target)
		}
		before := rel.String()
		rel.Arg1, rel.Arg2 = rel.Arg2, rel.Arg1
		ch.Changed(before, rel)
		return nil
	})
}

func (e *Engine) findRelation(origin, target, typ string) *annotation.Relation {
	for _, rel := range e.doc.Relations() {
		if rel.Arg1 == origin && rel.Arg2 == target && rel.Type == typ {
			return rel
		}
	}
	return nil
}

func hasArg(ev *annotation.Event, arg annotation.Arg) bool {
	for _, a := range ev.Args {
		if a == arg {
			return true
		}
	}
	return false
}

// removeArg removes the first occurrence of arg
func removeArg(ev *annotation.Event, arg annotation.Arg) {
	for i, a := range ev.Args {
		if a == arg {
			ev.Args = append(ev.Args[:i:i], ev.Args[i+1:]...)
			return
		}
	}
}
