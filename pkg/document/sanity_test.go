package document

import (
	"errors"
	"reflect"
	"testing"
)

func TestSanityDanglingReference(t *testing.T) {
	d := mustParse(t, "T1\tProtein 0 4\nA1\tNegation T7\n", Options{})

	var dang *DanglingReferenceError
	if len(d.Violations()) != 1 || !errors.As(d.Violations()[0], &dang) || dang.ID != "T7" {
		t.Errorf("violations = %v", d.Violations())
	}
}

func TestSanityEventTriggers(t *testing.T) {
	data := "T1\tProtein 0 4\nE1\tBinding:T1\nE2\tBinding:T9\n"
	d := mustParse(t, data, Options{})

	var nonTrigger *EventWithNonTriggerError
	var noTrigger *EventWithoutTriggerError
	var foundNon, foundMissing bool
	for _, v := range d.Violations() {
		if errors.As(v, &nonTrigger) && nonTrigger.Event.ID == "E1" {
			foundNon = true
		}
		if errors.As(v, &noTrigger) && noTrigger.Event.ID == "E2" {
			foundMissing = true
		}
	}
	if !foundNon || !foundMissing {
		t.Errorf("violations = %v", d.Violations())
	}
}

const relToTrigger = "T1\tProtein 0 4\nT2\tBinding 5 9\nE1\tBinding:T2 Theme:T1\nR1\tSite Arg1:T2 Arg2:T1\n"

func TestSanityTriggerReferencedByRelation(t *testing.T) {
	d := mustParse(t, relToTrigger, Options{})

	var tre *TriggerReferenceError
	if len(d.Violations()) != 1 || !errors.As(d.Violations()[0], &tre) || tre.Referrer.Identifier() != "R1" {
		t.Errorf("violations = %v", d.Violations())
	}
	if len(d.ExternallyReferencedTriggers()) != 0 {
		t.Error("trigger allowed without compatibility mode")
	}
}

func TestSanityCompat2013AllowsRelations(t *testing.T) {
	d := mustParse(t, relToTrigger, Options{Compat2013: true})
	if len(d.Violations()) != 0 {
		t.Errorf("violations = %v", d.Violations())
	}
	if !reflect.DeepEqual(d.ExternallyReferencedTriggers(), []string{"T2"}) {
		t.Errorf("external triggers = %v", d.ExternallyReferencedTriggers())
	}

	limited := mustParse(t, relToTrigger, Options{Compat2013: true, CompatRelationTypes: []string{"Coref"}})
	if len(limited.Violations()) != 1 {
		t.Errorf("relation type outside the allow-list accepted: %v", limited.Violations())
	}
}

func TestSanityAttributeOnTrigger(t *testing.T) {
	d := mustParse(t, "T1\tBinding 5 9\nE1\tBinding:T1\nA1\tNegation T1\n", Options{Compat2013: true})
	var tre *TriggerReferenceError
	if len(d.Violations()) != 1 || !errors.As(d.Violations()[0], &tre) {
		t.Errorf("violations = %v", d.Violations())
	}
}
