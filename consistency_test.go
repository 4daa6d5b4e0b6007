package foliate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairIsIdempotent(t *testing.T) {
	s := newTestSession(t)
	require.True(t, s.InsertFootnote("Source A"))
	require.True(t, s.InsertFootnote("Source B"))

	// The document is already consistent: a second pass must produce
	// zero additional edits and no history entry.
	entries := len(s.history)
	assert.False(t, s.Repair())
	assert.False(t, s.Repair())
	assert.Len(t, s.history, entries)
}

// TestReorderingRenumbers simulates cut-and-paste: marker #2 is moved in
// front of marker #1, and labels follow the new document order.
func TestReorderingRenumbers(t *testing.T) {
	s := newTestSession(t)
	doc := s.Document()
	require.True(t, s.InsertFootnote("Source A"))
	require.True(t, s.InsertFootnote("Source B"))

	markerB, posB := markerAt(doc, 1)
	require.NotNil(t, markerB)
	idA := func() string {
		m, _ := markerAt(doc, 0)
		return m.FootnoteID()
	}()
	idB := markerB.FootnoteID()

	txn, err := s.Begin("move marker")
	require.NoError(t, err)
	require.NoError(t, txn.Delete(posB, posB+1))
	// Paste at the start of the paragraph's text, ahead of marker A.
	require.NoError(t, txn.Insert(1, Fragment{NewFootnoteRef(idB, markerB.Label())}))
	require.NoError(t, txn.Commit())

	assert.Equal(t, []string{"1", "2"}, markerLabels(doc))
	first, _ := markerAt(doc, 0)
	second, _ := markerAt(doc, 1)
	assert.Equal(t, idB, first.FootnoteID())
	assert.Equal(t, idA, second.FootnoteID())

	// Bodies keep their container order but mirror the new labels.
	container, _ := findFirst(doc.root, KindFootnoteContainer)
	require.NotNil(t, container)
	byID := map[string]string{}
	for _, b := range container.Children {
		byID[b.FootnoteID()] = b.Label()
	}
	assert.Equal(t, "1", byID[idB])
	assert.Equal(t, "2", byID[idA])
}

func TestOrphanBodyIsRemoved(t *testing.T) {
	s := newTestSession(t)
	doc := s.Document()
	require.True(t, s.InsertFootnote("Source A"))

	// Inject a body with no matching marker.
	container, containerPos := findFirst(doc.root, KindFootnoteContainer)
	require.NotNil(t, container)
	appendPos := containerPos + 1 + container.contentSpan()

	txn, err := s.Begin("inject orphan body")
	require.NoError(t, err)
	require.NoError(t, txn.Insert(appendPos, Fragment{
		NewFootnoteBody("no-such-marker", "9", NewText("stray")),
	}))
	require.NoError(t, txn.Commit())

	container, _ = findFirst(doc.root, KindFootnoteContainer)
	require.NotNil(t, container)
	require.Len(t, container.Children, 1)
	assert.Equal(t, "Source A", container.Children[0].InnerText())
	assert.True(t, Audit(doc).Clean())
}

func TestOrphanMarkerIsRemoved(t *testing.T) {
	s := newTestSession(t)
	doc := s.Document()
	require.True(t, s.InsertFootnote("Source A"))

	// Delete the container wholesale; the marker loses its body and is
	// cleaned up by the consistency pass.
	container, containerPos := findFirst(doc.root, KindFootnoteContainer)
	require.NotNil(t, container)

	txn, err := s.Begin("delete container")
	require.NoError(t, err)
	require.NoError(t, txn.Delete(containerPos, containerPos+container.Span()))
	require.NoError(t, txn.Commit())

	assert.Empty(t, markerLabels(doc))
	report := Audit(doc)
	assert.Empty(t, report.OrphanMarkers)
	assert.Zero(t, report.Footnotes)
}

func TestEmptyContainerIsSweptWithSeparator(t *testing.T) {
	s := newTestSession(t)
	doc := s.Document()
	require.True(t, s.InsertFootnote("Source A"))

	// Delete both the marker and its body in the same edit, leaving the
	// container empty: the sweep removes container and separator.
	_, markerPos := markerAt(doc, 0)
	container, containerPos := findFirst(doc.root, KindFootnoteContainer)
	require.NotNil(t, container)
	body := container.Children[0]

	txn, err := s.Begin("delete marker and body")
	require.NoError(t, err)
	bodyPos := containerPos + 1
	require.NoError(t, txn.Delete(bodyPos, bodyPos+body.Span()))
	require.NoError(t, txn.Delete(markerPos, markerPos+1))
	require.NoError(t, txn.Commit())

	doc.Walk(func(n *Node, pos int) bool {
		assert.NotEqual(t, KindFootnoteContainer, n.Kind)
		assert.NotEqual(t, KindRule, n.Kind)
		return true
	})
	assert.True(t, Audit(doc).Clean())
}

// TestDuplicateMarkerIDIsRemoved: pasting a copy of an existing marker
// leaves two markers sharing one id. Exactly one survives (the first in
// document order) and the document settles clean.
func TestDuplicateMarkerIDIsRemoved(t *testing.T) {
	s := newTestSession(t)
	doc := s.Document()
	require.True(t, s.InsertFootnote("Source A"))

	marker, _ := markerAt(doc, 0)
	id := marker.FootnoteID()

	txn, err := s.Begin("paste duplicate marker")
	require.NoError(t, err)
	require.NoError(t, txn.Insert(1, Fragment{NewFootnoteRef(id, "0")}))
	require.NoError(t, txn.Commit())

	assert.Equal(t, []string{"1"}, markerLabels(doc))
	report := Audit(doc)
	assert.True(t, report.Clean(), "report: %+v", report)
	assert.Equal(t, 1, report.Footnotes)

	survivor, _ := markerAt(doc, 0)
	require.NotNil(t, survivor)
	assert.Equal(t, id, survivor.FootnoteID())
}

func TestRepairConvergesOnDuplicateIDs(t *testing.T) {
	// Two markers reusing one id, one body. Audit flags the duplicate,
	// one repair pass fixes it, a second finds nothing left.
	doc := mustDoc(t,
		NewParagraph(NewText("x"), NewFootnoteRef("a", "1"), NewFootnoteRef("a", "2")),
		NewRule(),
		NewFootnoteContainer(NewFootnoteBody("a", "1", NewText("src"))),
	)
	require.False(t, Audit(doc).Clean())

	s := NewSession(doc)
	defer s.Close()
	assert.True(t, s.Repair())
	assert.False(t, s.Repair())

	report := Audit(doc)
	assert.True(t, report.Clean(), "report: %+v", report)
	assert.Equal(t, 1, report.Footnotes)
	assert.Equal(t, []string{"1"}, report.Labels)
}

// TestExtraContainersAreMerged: a pasted fragment carrying its own
// footnote section leaves a second container, whose bodies fold into the
// first.
func TestExtraContainersAreMerged(t *testing.T) {
	s := newTestSession(t)
	doc := s.Document()
	require.True(t, s.InsertFootnote("Source A"))
	idA := func() string {
		m, _ := markerAt(doc, 0)
		return m.FootnoteID()
	}()

	txn, err := s.Begin("paste footnote section")
	require.NoError(t, err)
	require.NoError(t, txn.Insert(1, Fragment{NewFootnoteRef("pasted", "0")}))
	require.NoError(t, txn.Insert(txn.Size(), Fragment{
		NewFootnoteContainer(NewFootnoteBody("pasted", "0", NewText("Pasted Source"))),
	}))
	require.NoError(t, txn.Commit())

	containers := 0
	doc.Walk(func(n *Node, pos int) bool {
		if n.Kind == KindFootnoteContainer {
			containers++
		}
		return true
	})
	assert.Equal(t, 1, containers)

	container, _ := findFirst(doc.root, KindFootnoteContainer)
	require.NotNil(t, container)
	require.Len(t, container.Children, 2)

	// The pasted marker sits first in document order, so labels swap.
	assert.Equal(t, []string{"1", "2"}, markerLabels(doc))
	byID := map[string]string{}
	for _, b := range container.Children {
		byID[b.FootnoteID()] = b.Label()
	}
	assert.Equal(t, "1", byID["pasted"])
	assert.Equal(t, "2", byID[idA])
	assert.True(t, Audit(doc).Clean())
}

func TestConsistencyRunsInsideTheSameTransaction(t *testing.T) {
	s := newTestSession(t)
	doc := s.Document()
	require.True(t, s.InsertFootnote("Source A"))
	require.True(t, s.InsertFootnote("Source B"))
	entries := len(s.history)

	// Deleting a marker is one user edit; the body removal and the
	// renumbering ride in the same undo step.
	_, posA := markerAt(doc, 0)
	txn, err := s.Begin("delete marker")
	require.NoError(t, err)
	require.NoError(t, txn.Delete(posA, posA+1))
	require.NoError(t, txn.Commit())
	require.Len(t, s.history, entries+1)

	require.True(t, s.Undo())
	assert.Equal(t, []string{"1", "2"}, markerLabels(doc))
	container, _ := findFirst(doc.root, KindFootnoteContainer)
	require.NotNil(t, container)
	assert.Len(t, container.Children, 2)
}

func TestAuditReportsViolations(t *testing.T) {
	// Hand-built dirty document: marker "a" has no body, body "b" has no
	// marker, labels are stale.
	doc := mustDoc(t,
		NewParagraph(NewText("x"), NewFootnoteRef("a", "3")),
		NewRule(),
		NewFootnoteContainer(NewFootnoteBody("b", "1", NewText("stray"))),
	)

	report := Audit(doc)
	assert.Equal(t, 1, report.Footnotes)
	assert.Equal(t, []string{"a"}, report.OrphanMarkers)
	assert.Equal(t, []string{"b"}, report.OrphanBodies)
	assert.False(t, report.LabelsSequential)
	assert.False(t, report.Clean())

	// Repair leaves a clean, footnote-free document.
	s := NewSession(doc)
	defer s.Close()
	assert.True(t, s.Repair())
	assert.True(t, Audit(doc).Clean())
	assert.Zero(t, Audit(doc).Footnotes)
}

func TestAuditCleanDocument(t *testing.T) {
	s := newTestSession(t)
	require.True(t, s.InsertFootnote("Source A"))

	report := Audit(s.Document())
	assert.True(t, report.Clean())
	assert.Equal(t, 1, report.Footnotes)
	assert.Equal(t, []string{"1"}, report.Labels)
	assert.Equal(t, 1, report.Containers)
	assert.Equal(t, 1, report.ContainerBodies)
}
