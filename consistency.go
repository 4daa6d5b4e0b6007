package foliate

import (
	"strconv"

	"go.uber.org/zap"
)

// markerInfo is one inline footnote marker found during a scan.
type markerInfo struct {
	id    string
	pos   int
	label string
}

// bodyInfo is one footnote body found during a scan.
type bodyInfo struct {
	id    string
	pos   int
	span  int
	label string
}

// collectFootnotes gathers all markers and bodies in document order.
func collectFootnotes(root *Node) ([]markerInfo, []bodyInfo) {
	var markers []markerInfo
	var bodies []bodyInfo
	walkNode(root, 0, func(n *Node, pos int) bool {
		switch n.Kind {
		case KindFootnoteRef:
			markers = append(markers, markerInfo{id: n.FootnoteID(), pos: pos, label: n.Label()})
		case KindFootnoteBody:
			bodies = append(bodies, bodyInfo{id: n.FootnoteID(), pos: pos, span: n.Span(), label: n.Label()})
		}
		return true
	})
	return markers, bodies
}

// footnoteConsistency is the finalize hook that restores the footnote
// invariants after every edit: markers and bodies pair one-to-one, labels
// run 1..N in marker document order, and a single container (with its
// separator) exists exactly when footnotes do. It appends its corrections
// to the finalizing transaction so they share the edit's undo step, and it
// never fails: an individually inconsistent position is skipped, leaving
// an orphan rather than corrupting unrelated content.
func (s *Session) footnoteConsistency(t *Transaction) bool {
	before := len(t.steps)

	// A pasted fragment can carry its own footnote section; fold any
	// extra containers into the first before pairing markers and bodies.
	s.mergeExtraContainers(t)

	markers, bodies := collectFootnotes(t.root)
	markerIDs := make(map[string]bool, len(markers))
	for _, m := range markers {
		markerIDs[m.id] = true
	}
	bodyIDs := make(map[string]bool, len(bodies))
	for _, b := range bodies {
		if b.id != "" {
			bodyIDs[b.id] = true
		}
	}

	// Pairing is one-to-one: a second marker reusing an id (a pasted
	// copy) is as much an orphan as a marker with no body at all, and
	// likewise for bodies.
	var orphanMarkers []markerInfo
	claimedMarker := make(map[string]bool, len(markers))
	for _, m := range markers {
		if !bodyIDs[m.id] || claimedMarker[m.id] {
			orphanMarkers = append(orphanMarkers, m)
			continue
		}
		claimedMarker[m.id] = true
	}
	var orphanBodies []bodyInfo
	claimedBody := make(map[string]bool, len(bodies))
	for _, b := range bodies {
		if b.id == "" || !markerIDs[b.id] || claimedBody[b.id] {
			orphanBodies = append(orphanBodies, b)
			continue
		}
		claimedBody[b.id] = true
	}

	if len(orphanMarkers) > 0 || len(orphanBodies) > 0 {
		if len(bodies) > 0 && len(orphanBodies) == len(bodies) {
			// Every footnote is gone: tear down the whole section, then
			// delete whatever markers are left, last first.
			s.removeFootnoteSection(t)
			remaining, _ := collectFootnotes(t.root)
			for i := len(remaining) - 1; i >= 0; i-- {
				s.deleteMarker(t, remaining[i])
			}
		} else {
			// Delete orphaned bodies last first so earlier positions stay
			// valid, then re-scan for markers orphaned by those deletions.
			// The re-scan applies the same one-to-one rule, so duplicate
			// markers lose to the first occurrence of their id.
			for i := len(orphanBodies) - 1; i >= 0; i-- {
				s.deleteBody(t, orphanBodies[i])
			}
			remaining, left := collectFootnotes(t.root)
			leftIDs := make(map[string]bool, len(left))
			for _, b := range left {
				leftIDs[b.id] = true
			}
			var doomed []markerInfo
			claimed := make(map[string]bool, len(remaining))
			for _, m := range remaining {
				if !leftIDs[m.id] || claimed[m.id] {
					doomed = append(doomed, m)
					continue
				}
				claimed[m.id] = true
			}
			for i := len(doomed) - 1; i >= 0; i-- {
				s.deleteMarker(t, doomed[i])
			}
		}
	}

	// A container left empty by a direct edit inside it produces no
	// orphans, so it is swept here, separator included.
	if container, _ := findFirst(t.root, KindFootnoteContainer); container != nil && len(container.Children) == 0 {
		s.removeFootnoteSection(t)
	}

	s.renumber(t)

	changed := len(t.steps) > before
	if changed {
		s.logger.Debug("footnote consistency pass",
			zap.Int("orphanMarkers", len(orphanMarkers)),
			zap.Int("orphanBodies", len(orphanBodies)),
			zap.Int("corrections", len(t.steps)-before))
	}
	return changed
}

// renumber assigns labels 1..N to surviving markers in document order and
// mirrors each label onto the paired body. Only labels that actually
// differ are written.
func (s *Session) renumber(t *Transaction) {
	markers, bodies := collectFootnotes(t.root)
	bodyByID := make(map[string]bodyInfo, len(bodies))
	for _, b := range bodies {
		bodyByID[b.id] = b
	}
	for i, m := range markers {
		want := strconv.Itoa(i + 1)
		if m.label != want {
			if err := t.SetAttrs(m.pos, Attrs{AttrLabel: want}); err != nil {
				s.logger.Debug("renumber skipped marker", zap.Int("pos", m.pos), zap.Error(err))
			}
		}
		if b, ok := bodyByID[m.id]; ok && b.label != want {
			if err := t.SetAttrs(b.pos, Attrs{AttrLabel: want}); err != nil {
				s.logger.Debug("renumber skipped body", zap.Int("pos", b.pos), zap.Error(err))
			}
		}
	}
}

// mergeExtraContainers folds the bodies of every container beyond the
// first into the first container and deletes the extras, so the rest of
// the pass sees at most one container.
func (s *Session) mergeExtraContainers(t *Transaction) {
	for {
		var first, extra *Node
		firstPos, extraPos := 0, 0
		walkNode(t.root, 0, func(n *Node, p int) bool {
			if n.Kind != KindFootnoteContainer {
				return true
			}
			if first == nil {
				first, firstPos = n, p
				return true
			}
			extra, extraPos = n, p
			return false
		})
		if extra == nil {
			return
		}
		bodies := make(Fragment, len(extra.Children))
		for i, b := range extra.Children {
			bodies[i] = b.Clone()
		}
		if err := t.Delete(extraPos, extraPos+extra.Span()); err != nil {
			s.logger.Debug("extra container delete failed", zap.Int("pos", extraPos), zap.Error(err))
			return
		}
		if len(bodies) == 0 {
			continue
		}
		// The extra followed the first in document order, so deleting it
		// left the first's position and content untouched.
		if err := t.Insert(firstPos+1+first.contentSpan(), bodies); err != nil {
			s.logger.Debug("container merge failed", zap.Int("pos", firstPos), zap.Error(err))
			return
		}
	}
}

// removeFootnoteSection deletes the footnote container and its preceding
// separator. The separator precedes the container in document order, so it
// is deleted first and the container's position remapped through that
// deletion.
func (s *Session) removeFootnoteSection(t *Transaction) {
	off := 0
	for i, c := range t.root.Children {
		if c.Kind != KindFootnoteContainer {
			off += c.Span()
			continue
		}
		containerPos := off
		span := c.Span()
		mark := t.StepMark()
		if i > 0 && t.root.Children[i-1].Kind == KindRule {
			sepPos := containerPos - 1
			if err := t.Delete(sepPos, sepPos+1); err != nil {
				s.logger.Debug("separator delete skipped", zap.Int("pos", sepPos), zap.Error(err))
			}
		}
		containerPos = t.MapSince(mark, containerPos)
		if err := t.Delete(containerPos, containerPos+span); err != nil {
			s.logger.Debug("container delete skipped", zap.Int("pos", containerPos), zap.Error(err))
		}
		return
	}
}

// deleteMarker removes one marker after confirming the position still
// resolves to that marker.
func (s *Session) deleteMarker(t *Transaction, m markerInfo) {
	n := nodeAt(t.root, m.pos)
	if n == nil || n.Kind != KindFootnoteRef || n.FootnoteID() != m.id {
		s.logger.Debug("orphan marker skipped", zap.Int("pos", m.pos), zap.String("footnoteId", m.id))
		return
	}
	if err := t.Delete(m.pos, m.pos+1); err != nil {
		s.logger.Debug("orphan marker delete failed", zap.Int("pos", m.pos), zap.Error(err))
	}
}

// deleteBody removes one body after confirming the position still
// resolves to that body.
func (s *Session) deleteBody(t *Transaction, b bodyInfo) {
	n := nodeAt(t.root, b.pos)
	if n == nil || n.Kind != KindFootnoteBody || n.FootnoteID() != b.id {
		s.logger.Debug("orphan body skipped", zap.Int("pos", b.pos), zap.String("footnoteId", b.id))
		return
	}
	if err := t.Delete(b.pos, b.pos+b.span); err != nil {
		s.logger.Debug("orphan body delete failed", zap.Int("pos", b.pos), zap.Error(err))
	}
}

// Repair runs the consistency pass as its own transaction and reports
// whether any correction was applied. Useful for documents edited outside
// a session (for example, loaded from markup).
func (s *Session) Repair() bool {
	t, err := s.Begin("footnote repair")
	if err != nil {
		return false
	}
	if err := t.Commit(); err != nil {
		return false
	}
	return t.Changed()
}

// Report summarizes the footnote state of a document.
type Report struct {
	Footnotes        int      `yaml:"footnotes"`
	Labels           []string `yaml:"labels,omitempty"`
	LabelsSequential bool     `yaml:"labelsSequential"`
	OrphanMarkers    []string `yaml:"orphanMarkers,omitempty"`
	OrphanBodies     []string `yaml:"orphanBodies,omitempty"`
	Containers       int      `yaml:"containers"`
	ContainerBodies  int      `yaml:"containerBodies"`
}

// Clean reports whether the document satisfies all footnote invariants.
func (r Report) Clean() bool {
	if len(r.OrphanMarkers) > 0 || len(r.OrphanBodies) > 0 || !r.LabelsSequential {
		return false
	}
	if r.Footnotes == 0 {
		return r.Containers == 0
	}
	return r.Containers == 1 && r.ContainerBodies == r.Footnotes
}

// Audit scans a document and reports its footnote state without modifying
// anything.
func Audit(doc *Document) Report {
	markers, bodies := collectFootnotes(doc.root)

	report := Report{
		Footnotes:        len(markers),
		LabelsSequential: true,
		ContainerBodies:  len(bodies),
	}

	bodyByID := make(map[string]bodyInfo, len(bodies))
	bodyIDs := make(map[string]bool, len(bodies))
	for _, b := range bodies {
		if b.id != "" {
			bodyByID[b.id] = b
			bodyIDs[b.id] = true
		}
	}
	markerIDs := make(map[string]bool, len(markers))
	for _, m := range markers {
		markerIDs[m.id] = true
	}

	claimedMarker := make(map[string]bool, len(markers))
	for i, m := range markers {
		report.Labels = append(report.Labels, m.label)
		if !bodyIDs[m.id] || claimedMarker[m.id] {
			report.OrphanMarkers = append(report.OrphanMarkers, m.id)
		} else {
			claimedMarker[m.id] = true
		}
		want := strconv.Itoa(i + 1)
		if m.label != want {
			report.LabelsSequential = false
		} else if b, ok := bodyByID[m.id]; ok && b.label != want {
			report.LabelsSequential = false
		}
	}
	claimedBody := make(map[string]bool, len(bodies))
	for _, b := range bodies {
		if b.id == "" || !markerIDs[b.id] || claimedBody[b.id] {
			report.OrphanBodies = append(report.OrphanBodies, b.id)
			continue
		}
		claimedBody[b.id] = true
	}

	doc.Walk(func(n *Node, pos int) bool {
		if n.Kind == KindFootnoteContainer {
			report.Containers++
		}
		return true
	})

	return report
}
