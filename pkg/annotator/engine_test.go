package annotator

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/annstore/pkg/annotation"
	"github.com/nainya/annstore/pkg/document"
	"github.com/nainya/annstore/pkg/span"
)

// Offsets: BRCA 10-14, TP53 15-19, bind 20-24, other. 30-36, newline 36,
// A second 37-45
const testText = "Proteins: BRCA TP53 bind each other.\nA second line.\n"

type testConfig struct{}

func (testConfig) IsEventType(t string) bool {
	return t == "Binding" || t == "Regulation"
}

func (testConfig) IsRelationType(t string) bool {
	return t == "Part-of" || t == "Unlabeled" || t == "Equiv"
}

func (testConfig) IsEquivType(t string) bool { return t == "Equiv" }

func (testConfig) IsPhysicalEntityType(t string) bool {
	return t == "Protein" || t == "Gene"
}

func (c testConfig) TypeCategory(t string) Category {
	switch {
	case c.IsPhysicalEntityType(t):
		return CategoryEntity
	case c.IsEventType(t):
		return CategoryEvent
	case c.IsRelationType(t):
		return CategoryRelation
	}
	return CategoryUnknown
}

func (testConfig) RelationArgLabels(t string) (string, string, bool) {
	if t == "Part-of" {
		return "Arg1", "Arg2", true
	}
	return "", "", false
}

func newEngine(t *testing.T, data string) *Engine {
	t.Helper()
	doc, err := document.ParseString(data, document.Options{Name: "test", Text: testText, HasText: true})
	require.NoError(t, err)
	require.Empty(t, doc.FailedLines())
	return New(doc, testConfig{}, zerolog.Nop())
}

func spans(pairs ...int) []span.Span {
	var out []span.Span
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, span.Span{Start: pairs[i], End: pairs[i+1]})
	}
	return out
}

func TestCreateSpanAllocatesSequentialIDs(t *testing.T) {
	e := newEngine(t, "")

	res, err := e.CreateSpan(SpanRequest{Offsets: spans(10, 14), Type: "Protein"})
	require.NoError(t, err)
	require.NotNil(t, res.TextBound)
	assert.Equal(t, "T1", res.TextBound.ID)
	assert.Equal(t, "BRCA", res.TextBound.Text)
	assert.Nil(t, res.Event, "physical entities get no event")
	assert.Equal(t, Undo{Action: UndoAdd, ID: "T1", Attributes: map[string]string{}}, res.Undo)
	assert.Equal(t, [][]string{{"T1"}}, res.Edited())

	res, err = e.CreateSpan(SpanRequest{Offsets: spans(15, 19), Type: "Protein"})
	require.NoError(t, err)
	assert.Equal(t, "T2", res.TextBound.ID)

	assert.Equal(t, "T1\tProtein 10 14\tBRCA\nT2\tProtein 15 19\tTP53\n", e.Document().String())
}

func TestCreateEventSpanReusesTrigger(t *testing.T) {
	e := newEngine(t, "")

	first, err := e.CreateSpan(SpanRequest{Offsets: spans(20, 24), Type: "Binding"})
	require.NoError(t, err)
	require.NotNil(t, first.Event)
	assert.Equal(t, "E1", first.Event.ID)
	assert.Equal(t, "E1", first.Undo.ID)

	second, err := e.CreateSpan(SpanRequest{Offsets: spans(20, 24), Type: "Binding"})
	require.NoError(t, err)
	assert.Equal(t, "T1", second.TextBound.ID, "trigger should be reused")
	assert.Equal(t, "E2", second.Event.ID)
	assert.Len(t, e.Document().TextBounds(), 1)
}

func TestCreateSpanSplitsOnNewlines(t *testing.T) {
	e := newEngine(t, "")

	res, err := e.CreateSpan(SpanRequest{Offsets: spans(30, 45), Type: "Protein"})
	require.NoError(t, err)
	assert.Equal(t, spans(30, 36, 37, 45), res.TextBound.Spans)
	assert.Equal(t, "other. A second", res.TextBound.Text)
}

func TestCreateSpanRejectsWhitespaceSelection(t *testing.T) {
	e := newEngine(t, "")

	for _, offsets := range [][]span.Span{spans(36, 37), spans(14, 15)} {
		res, err := e.CreateSpan(SpanRequest{Offsets: offsets, Type: "Protein"})
		require.NoError(t, err)
		assert.True(t, res.Rejected)
		assert.Zero(t, res.Len())
	}
	assert.Empty(t, e.Document().String())
}

func TestCreateSpanKeepsNullSpan(t *testing.T) {
	e := newEngine(t, "")

	res, err := e.CreateSpan(SpanRequest{Offsets: spans(14, 14), Type: "Protein"})
	require.NoError(t, err)
	assert.False(t, res.Rejected)
	assert.Equal(t, spans(14, 14), res.TextBound.Spans)
	assert.Equal(t, "", res.TextBound.Text)
}

func TestCreateSpanRejectsBadOffsets(t *testing.T) {
	e := newEngine(t, "")

	_, err := e.CreateSpan(SpanRequest{Offsets: spans(10, 15, 12, 19), Type: "Protein"})
	var overlap *span.OverlapError
	assert.ErrorAs(t, err, &overlap)

	_, err = e.CreateSpan(SpanRequest{Offsets: spans(40, 400), Type: "Protein"})
	var rangeErr *span.RangeError
	assert.ErrorAs(t, err, &rangeErr)

	_, err = e.CreateSpan(SpanRequest{Type: "Protein"})
	var reqErr *RequestError
	assert.ErrorAs(t, err, &reqErr)

	assert.Empty(t, e.Document().String())
}

func TestEditSpanMovesAndRecordsUndo(t *testing.T) {
	e := newEngine(t, "T1\tProtein 10 14\tBRCA\n")

	res, err := e.CreateSpan(SpanRequest{ID: "T1", Offsets: spans(15, 19), Type: "Gene"})
	require.NoError(t, err)
	assert.Equal(t, UndoModify, res.Undo.Action)
	assert.Equal(t, spans(10, 14), res.Undo.Offsets)
	assert.Equal(t, "Protein", res.Undo.Type)
	assert.Equal(t, "T1\tGene 15 19\tTP53\n", e.Document().String())
	assert.Equal(t, [][]string{{"T1"}}, res.Edited())
}

func TestEditSpanRejectsCrossCategoryRetype(t *testing.T) {
	data := "T1\tProtein 10 14\tBRCA\n"
	e := newEngine(t, data)

	_, err := e.CreateSpan(SpanRequest{ID: "T1", Offsets: spans(15, 19), Type: "Binding"})
	var catErr *CategoryError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, CategoryEntity, catErr.FromCategory)
	assert.Equal(t, CategoryEvent, catErr.ToCategory)
	assert.Equal(t, data, e.Document().String(), "failed edit must not move the span")
}

func TestEditEventRetypeClonesSharedTrigger(t *testing.T) {
	e := newEngine(t, "T1\tBinding 20 24\tbind\nE1\tBinding:T1 \nE2\tBinding:T1 \n")

	res, err := e.CreateSpan(SpanRequest{ID: "E1", Offsets: spans(20, 24), Type: "Regulation"})
	require.NoError(t, err)

	doc := e.Document()
	assert.Equal(t, "T1\tBinding 20 24\tbind\nE1\tRegulation:T2 \nE2\tBinding:T1 \nT2\tRegulation 20 24\tbind\n", doc.String())
	assert.Equal(t, "T2", res.TextBound.ID)
	assert.Empty(t, doc.SanityCheck())
}

func TestEditEventRetypeOwnedTrigger(t *testing.T) {
	e := newEngine(t, "T1\tBinding 20 24\tbind\nE1\tBinding:T1 \n")

	_, err := e.CreateSpan(SpanRequest{ID: "E1", Offsets: spans(20, 24), Type: "Regulation"})
	require.NoError(t, err)
	assert.Equal(t, "T1\tRegulation 20 24\tbind\nE1\tRegulation:T1 \n", e.Document().String())
}

func TestEditEventRetypeReusesExistingTrigger(t *testing.T) {
	e := newEngine(t, "T1\tBinding 20 24\tbind\nE1\tBinding:T1 \nT2\tRegulation 20 24\tbind\nE2\tRegulation:T2 \n")

	res, err := e.CreateSpan(SpanRequest{ID: "E1", Offsets: spans(20, 24), Type: "Regulation"})
	require.NoError(t, err)
	assert.Equal(t, "E1\tRegulation:T2 \nT2\tRegulation 20 24\tbind\nE2\tRegulation:T2 \n", e.Document().String())
	require.Len(t, res.Removed(), 1)
	assert.Equal(t, "T1", res.Removed()[0].Identifier())
}

func TestCreateSpanSetsAttributesNormalizationsAndNote(t *testing.T) {
	e := newEngine(t, "")

	res, err := e.CreateSpan(SpanRequest{
		Offsets:        spans(10, 14),
		Type:           "Protein",
		Attributes:     map[string]string{"Negation": "", "Confidence": "High"},
		Normalizations: []NormRef{{RefDB: "UniProt", RefID: "P38398", RefText: "BRCA1"}},
		Comment:        "check this",
	})
	require.NoError(t, err)
	assert.Equal(t, "T1\tProtein 10 14\tBRCA\n"+
		"A1\tConfidence T1 High\n"+
		"A2\tNegation T1\n"+
		"N1\tReference T1 UniProt:P38398\tBRCA1\n"+
		"#1\tAnnotatorNotes T1\tcheck this\n", e.Document().String())
	assert.Equal(t, [][]string{{"T1"}, {"#1"}}, res.Edited())

	res, err = e.CreateSpan(SpanRequest{
		ID:         "T1",
		Offsets:    spans(10, 14),
		Type:       "Protein",
		Attributes: map[string]string{"Negation": ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "T1\tProtein 10 14\tBRCA\nA2\tNegation T1\n", e.Document().String())
	assert.Equal(t, map[string]string{"Negation": "", "Confidence": "High"}, res.Undo.Attributes)
	assert.Equal(t, "check this", res.Undo.Comment)
	assert.Equal(t, []NormRef{{RefDB: "UniProt", RefID: "P38398", RefText: "BRCA1"}}, res.Undo.Normalizations)
	assert.Len(t, res.Removed(), 3)
}

func TestCreateSpanAttributesGoToEvent(t *testing.T) {
	e := newEngine(t, "")

	res, err := e.CreateSpan(SpanRequest{
		Offsets:    spans(20, 24),
		Type:       "Binding",
		Attributes: map[string]string{"Negation": ""},
	})
	require.NoError(t, err)
	attrs := e.Document().Attributes()
	require.Len(t, attrs, 1)
	assert.Equal(t, res.Event.ID, attrs[0].Target)
}

func TestCreateSpanRejectsEmptyNormalization(t *testing.T) {
	e := newEngine(t, "")

	_, err := e.CreateSpan(SpanRequest{
		Offsets:        spans(10, 14),
		Type:           "Protein",
		Normalizations: []NormRef{{RefDB: "", RefID: "P38398"}},
	})
	var reqErr *RequestError
	assert.ErrorAs(t, err, &reqErr)
	assert.Empty(t, e.Document().String())
}

func TestDeleteSpanRemovesEventAndTrigger(t *testing.T) {
	e := newEngine(t, "T1\tBinding 20 24\tbind\nE1\tBinding:T1 \nA1\tNegation E1\n")

	ch, err := e.DeleteSpan("E1")
	require.NoError(t, err)
	assert.Empty(t, e.Document().String())
	assert.Len(t, ch.Removed(), 3)
}

func TestDeleteSpanKeepsSharedTrigger(t *testing.T) {
	e := newEngine(t, "T1\tBinding 20 24\tbind\nE1\tBinding:T1 \nE2\tBinding:T1 \n")

	_, err := e.DeleteSpan("E1")
	require.NoError(t, err)
	assert.Equal(t, "T1\tBinding 20 24\tbind\nE2\tBinding:T1 \n", e.Document().String())
}

func TestDeleteSpanCascadesAndBlocks(t *testing.T) {
	data := "T1\tProtein 10 14\tBRCA\nT2\tProtein 15 19\tTP53\nA1\tNegation T1\n*\tEquiv T1 T2\n"
	e := newEngine(t, data)

	_, err := e.DeleteSpan("T1")
	require.NoError(t, err)
	assert.Equal(t, "T2\tProtein 15 19\tTP53\n", e.Document().String())

	data = "T1\tProtein 10 14\tBRCA\nT2\tBinding 20 24\tbind\nE1\tBinding:T2 Theme:T1\n"
	e = newEngine(t, data)
	_, err = e.DeleteSpan("T1")
	var dep *document.DependencyError
	require.ErrorAs(t, err, &dep)
	assert.Equal(t, []string{"E1"}, dep.IDs())
	assert.Equal(t, data, e.Document().String())

	_, err = e.DeleteSpan("T9")
	var nf *document.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestEquivCreateAndReversedDelete(t *testing.T) {
	data := "T1\tProtein 10 14\tBRCA\nT2\tProtein 15 19\tTP53\n"
	e := newEngine(t, data)

	ch, err := e.CreateArc(ArcRequest{Origin: "T1", Target: "T2", Type: "Equiv"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"equiv", "Equiv", "T1"}}, ch.Edited())
	assert.Equal(t, data+"*\tEquiv T1 T2\n", e.Document().String())

	ch, err = e.DeleteArc("T2", "T1", "Equiv")
	require.NoError(t, err)
	assert.Equal(t, data, e.Document().String())
	assert.Empty(t, e.Document().Equivs())
	assert.Empty(t, ch.Edited(), "a removed equivalence is not an edited record")
	assert.Empty(t, ch.Modified())
	assert.Len(t, ch.Removed(), 1)
}

func TestEquivDeleteKeepsLargerGroup(t *testing.T) {
	data := "T1\tProtein 10 14\tBRCA\nT2\tProtein 15 19\tTP53\n" +
		"T3\tProtein 30 36\tother.\nT4\tGene 0 8\tProteins\n*\tEquiv T1 T2 T3 T4\n"
	e := newEngine(t, data)

	ch, err := e.DeleteArc("T1", "T2", "Equiv")
	require.NoError(t, err)
	require.Len(t, e.Document().Equivs(), 1)
	assert.Equal(t, []string{"T3", "T4"}, e.Document().Equivs()[0].Members)
	assert.Equal(t, [][]string{{"equiv", "Equiv", "T3"}}, ch.Edited())
	assert.Empty(t, ch.Removed())
}

func TestEquivEditIsWarnedNotApplied(t *testing.T) {
	data := "T1\tProtein 10 14\tBRCA\nT2\tProtein 15 19\tTP53\nT3\tProtein 30 36\tother.\n*\tEquiv T1 T2\n"
	e := newEngine(t, data)

	ch, err := e.CreateArc(ArcRequest{Origin: "T1", Target: "T3", Type: "Equiv", OldType: "Equiv", OldTarget: "T2"})
	require.NoError(t, err)
	assert.Len(t, ch.Warnings(), 1)
	assert.Equal(t, data, e.Document().String())
}

func TestRelationLifecycle(t *testing.T) {
	data := "T1\tProtein 10 14\tBRCA\nT2\tProtein 15 19\tTP53\nT3\tProtein 30 36\tother.\n"
	e := newEngine(t, data)

	_, err := e.CreateArc(ArcRequest{Origin: "T1", Target: "T2", Type: "Part-of", Comment: "likely"})
	require.NoError(t, err)
	assert.Equal(t, data+"R1\tPart-of Arg1:T1 Arg2:T2\n#1\tAnnotatorNotes R1\tlikely\n", e.Document().String())

	_, err = e.CreateArc(ArcRequest{Origin: "T1", Target: "T3", Type: "Part-of", OldType: "Part-of", OldTarget: "T2", Comment: "likely"})
	require.NoError(t, err)
	rels := e.Document().Relations()
	require.Len(t, rels, 1)
	assert.Equal(t, "T3", rels[0].Arg2)

	_, err = e.ReverseArc("T1", "T3", "Part-of")
	require.NoError(t, err)
	assert.Equal(t, "T3", rels[0].Arg1)
	assert.Equal(t, "T1", rels[0].Arg2)

	_, err = e.ReverseArc("T1", "T3", "Equiv")
	var reqErr *RequestError
	assert.ErrorAs(t, err, &reqErr)

	_, err = e.DeleteArc("T3", "T1", "Part-of")
	require.NoError(t, err)
	assert.Equal(t, data, e.Document().String(), "relation and its note should be gone")
}

func TestRelationToItselfRejected(t *testing.T) {
	e := newEngine(t, "T1\tProtein 10 14\tBRCA\n")

	_, err := e.CreateArc(ArcRequest{Origin: "T1", Target: "T1", Type: "Part-of"})
	var reqErr *RequestError
	assert.ErrorAs(t, err, &reqErr)
}

func TestEventArguments(t *testing.T) {
	e := newEngine(t, "T1\tProtein 10 14\tBRCA\nT2\tProtein 15 19\tTP53\nT3\tBinding 20 24\tbind\nE1\tBinding:T3 \n")

	_, err := e.CreateArc(ArcRequest{Origin: "E1", Target: "T1", Type: "Theme"})
	require.NoError(t, err)
	_, err = e.CreateArc(ArcRequest{Origin: "E1", Target: "T2", Type: "Theme"})
	require.NoError(t, err)

	ev, err := e.Document().Get("E1")
	require.NoError(t, err)
	assert.Equal(t, "E1\tBinding:T3 Theme:T1 Theme2:T2", ev.String())

	_, err = e.CreateArc(ArcRequest{Origin: "E1", Target: "T1", Type: "Cause", OldType: "Theme", OldTarget: "T1"})
	require.NoError(t, err)
	assert.Equal(t, "E1\tBinding:T3 Theme2:T2 Cause:T1", ev.String())

	_, err = e.DeleteArc("E1", "T2", "Theme2")
	require.NoError(t, err)
	assert.Equal(t, "E1\tBinding:T3 Cause:T1", ev.String())
}

func TestArgumentFromTextBoundCreatesEvent(t *testing.T) {
	e := newEngine(t, "T1\tProtein 10 14\tBRCA\nT2\tBinding 20 24\tbind\n")

	ch, err := e.CreateArc(ArcRequest{Origin: "T2", Target: "T1", Type: "Theme"})
	require.NoError(t, err)
	require.Len(t, ch.Added(), 1)
	assert.Equal(t, "E1\tBinding:T2 Theme:T1", ch.Added()[0].String())
}

func TestCreateArcChangingKindDeletesOldArc(t *testing.T) {
	data := "T1\tProtein 10 14\tBRCA\nT2\tProtein 15 19\tTP53\nR1\tPart-of Arg1:T1 Arg2:T2\n"
	e := newEngine(t, data)

	_, err := e.CreateArc(ArcRequest{Origin: "T1", Target: "T2", Type: "Equiv", OldType: "Part-of", OldTarget: "T2"})
	require.NoError(t, err)
	assert.Equal(t, "T1\tProtein 10 14\tBRCA\nT2\tProtein 15 19\tTP53\n*\tEquiv T1 T2\n", e.Document().String())
}

func TestCreateArcRollsBackOnLateFailure(t *testing.T) {
	data := "T1\tProtein 10 14\tBRCA\nT2\tProtein 15 19\tTP53\n*\tEquiv T1 T2\n"
	e := newEngine(t, data)

	// The equivalence is deleted first, then the relation cannot be created
	_, err := e.CreateArc(ArcRequest{Origin: "T1", Target: "T2", Type: "Unlabeled", OldType: "Equiv", OldTarget: "T2"})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, data, e.Document().String())
}

const splitData = "T1\tProtein 10 14\tBRCA\nT2\tProtein 15 19\tTP53\nT3\tProtein 30 36\tother.\n" +
	"T4\tBinding 20 24\tbind\nE1\tBinding:T4 Theme:T1 Theme2:T2 Cause:T3\n#1\tAnnotatorNotes E1\tcheck\n"

func TestSplitEvent(t *testing.T) {
	e := newEngine(t, splitData)

	ch, err := e.SplitEvent("E1", []string{"Theme"})
	require.NoError(t, err)

	doc := e.Document()
	events := doc.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "E1\tBinding:T4 Cause:T3 Theme:T1", events[0].String())
	assert.Equal(t, "E2\tBinding:T4 Cause:T3 Theme:T2", events[1].String())

	comments := doc.Comments()
	require.Len(t, comments, 2)
	assert.Equal(t, "E1", comments[0].Target)
	assert.Equal(t, "E2", comments[1].Target)
	assert.Equal(t, "check", comments[1].Text())

	assert.Equal(t, [][]string{{"E2"}, {"#2"}, {"E1"}}, ch.Edited())
	assert.Empty(t, doc.SanityCheck())
}

func TestSplitEventUpdatesReferencingEvent(t *testing.T) {
	data := splitData + "T5\tRegulation 30 36\tother.\nE3\tRegulation:T5 Theme:E1\n"
	e := newEngine(t, data)

	_, err := e.SplitEvent("E1", []string{"Theme"})
	require.NoError(t, err)
	ev, err := e.Document().Get("E3")
	require.NoError(t, err)
	assert.Equal(t, "E3\tRegulation:T5 Theme:E1 Theme2:E2", ev.String())
}

func TestSplitEventFailures(t *testing.T) {
	e := newEngine(t, splitData)

	_, err := e.SplitEvent("E1", []string{"Cause"})
	var splitErr *SplitError
	require.ErrorAs(t, err, &splitErr)

	_, err = e.SplitEvent("T1", []string{"Theme"})
	assert.ErrorAs(t, err, &splitErr)

	data := splitData + "R1\tPart-of Arg1:E1 Arg2:T3\n"
	e = newEngine(t, data)
	_, err = e.SplitEvent("E1", []string{"Theme"})
	require.ErrorAs(t, err, &splitErr)
	assert.Equal(t, data, e.Document().String())
}

func TestReadOnlyDocument(t *testing.T) {
	doc, err := document.ParseString("T1\tProtein 10 14\tBRCA\n", document.Options{Text: testText, HasText: true, ReadOnly: true})
	require.NoError(t, err)
	e := New(doc, testConfig{}, zerolog.Nop())

	_, err = e.DeleteSpan("T1")
	var ro *document.ReadOnlyError
	assert.ErrorAs(t, err, &ro)
	_, err = e.SetStatus("done")
	assert.ErrorAs(t, err, &ro)
}

func TestStatus(t *testing.T) {
	e := newEngine(t, "T1\tProtein 10 14\tBRCA\n#1\tSTATUS draft\n")
	assert.Equal(t, "draft", e.Status())

	ch, err := e.SetStatus("done")
	require.NoError(t, err)
	assert.Equal(t, "done", e.Status())
	assert.Len(t, ch.Removed(), 1)
	assert.Equal(t, [][]string{{"#1"}}, ch.Edited())

	_, err = e.SetStatus("two words")
	require.Error(t, err)
	assert.Equal(t, "done", e.Status())
}

func TestOperationHook(t *testing.T) {
	e := newEngine(t, "")
	var ops []string
	e.OnOperation = func(op string, _ time.Duration, err error) {
		if err == nil {
			ops = append(ops, op)
		}
	}
	_, err := e.CreateSpan(SpanRequest{Offsets: spans(10, 14), Type: "Protein"})
	require.NoError(t, err)
	_, err = e.DeleteSpan("T1")
	require.NoError(t, err)
	assert.Equal(t, []string{"create_span", "delete_span"}, ops)
}

func TestParseOffsets(t *testing.T) {
	got, err := ParseOffsets("[[10, 14], [20, 24]]")
	require.NoError(t, err)
	assert.Equal(t, spans(10, 14, 20, 24), got)

	for _, bad := range []string{"not json", "[[1, 2, 3]]", "[[1.5, 2]]", `[["a", "b"]]`} {
		_, err := ParseOffsets(bad)
		var reqErr *RequestError
		assert.True(t, errors.As(err, &reqErr), "input %q", bad)
	}
}

func TestParseAttributes(t *testing.T) {
	got, err := ParseAttributes(`{"Negation": true, "Speculation": false, "Confidence": "High"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Negation": "", "Confidence": "High"}, got)

	_, err = ParseAttributes("{")
	assert.Error(t, err)
}

func TestChangesEditedDeduplicates(t *testing.T) {
	ch := &Changes{}
	tb := &annotation.TextBound{ID: "T1"}
	ch.addition(tb)
	ch.Changed("before", tb)
	ch.addition(&annotation.Attribute{ID: "A1", Target: "T1"})
	ch.addition(&annotation.Unknown{Line: "junk"})
	assert.Equal(t, [][]string{{"T1"}}, ch.Edited())
}

func TestChangesEditedSkipsRemoved(t *testing.T) {
	ch := &Changes{}
	eq := &annotation.Equiv{Type: "Equiv", Members: []string{"T1"}}
	ch.Changed("*\tEquiv T1 T2", eq)
	ch.Deleted(eq)
	tb := &annotation.TextBound{ID: "T2"}
	ch.Changed("T2\tProtein 0 1\tP", tb)
	assert.Equal(t, [][]string{{"T2"}}, ch.Edited())
	assert.Equal(t, 3, ch.Len())
}
