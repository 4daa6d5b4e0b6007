package foliate

import (
	"github.com/google/uuid"

	"go.uber.org/zap"
)

// InsertFootnote inserts a footnote at the current cursor position: an
// inline marker at the cursor, and a body holding sourceLabel appended to
// the footnote container (created lazily, with its separator, at the end
// of the document). The marker, body, and container land in one
// transaction and undo as a single step; the consistency pass assigns the
// real label before the edit becomes visible.
//
// Returns false, with nothing committed, when no valid cursor position
// exists for an inline insertion.
func (s *Session) InsertFootnote(sourceLabel string) bool {
	from, _, ok := s.Selection()
	if !ok || !canInsertInline(s.doc.root, 0, from) {
		return false
	}

	t, err := s.Begin("insert footnote")
	if err != nil {
		return false
	}

	id := uuid.NewString()
	if err := t.Insert(from, Fragment{NewFootnoteRef(id, PlaceholderLabel)}); err != nil {
		t.Rollback()
		return false
	}
	if err := appendFootnoteBody(t, id, sourceLabel); err != nil {
		t.Rollback()
		return false
	}

	s.logger.Debug("insert footnote", zap.String("footnoteId", id))
	if err := t.Commit(); err != nil {
		return false
	}
	return true
}

// InsertQuoteWithFootnote replaces the current selection with a blockquote
// holding quoteText followed by a paragraph holding a footnote marker, and
// appends the matching body to the container. The selection replacement,
// both blocks, and the body append form one structural splice in one
// transaction, never two separate undo steps.
//
// Returns false, with nothing committed, when the selection does not
// resolve to a valid block splice point.
func (s *Session) InsertQuoteWithFootnote(quoteText, sourceLabel string) bool {
	from, to, ok := s.Selection()
	if !ok {
		return false
	}

	t, err := s.Begin("insert quote with footnote")
	if err != nil {
		return false
	}

	if from < to {
		if err := t.Delete(from, to); err != nil {
			t.Rollback()
			return false
		}
	}

	id := uuid.NewString()
	quote := NewBlockquote(NewParagraph(NewText(quoteText)))
	marker := NewParagraph(NewFootnoteRef(id, PlaceholderLabel))
	if err := t.Insert(t.Map(from), Fragment{quote, marker}); err != nil {
		t.Rollback()
		return false
	}
	if err := appendFootnoteBody(t, id, sourceLabel); err != nil {
		t.Rollback()
		return false
	}

	s.logger.Debug("insert quote with footnote", zap.String("footnoteId", id))
	if err := t.Commit(); err != nil {
		return false
	}
	return true
}

// appendFootnoteBody appends a new body for footnoteID to the container,
// creating the separator and container at the end of the document when
// absent. The container is located by scanning the transaction's working
// tree, never through positions captured before earlier steps in the same
// transaction.
func appendFootnoteBody(t *Transaction, footnoteID, sourceLabel string) error {
	var inline Fragment
	if sourceLabel != "" {
		inline = Fragment{NewText(sourceLabel)}
	}
	body := NewFootnoteBody(footnoteID, PlaceholderLabel, inline...)

	container, containerPos := findFirst(t.root, KindFootnoteContainer)
	if container != nil {
		appendPos := containerPos + 1 + container.contentSpan()
		return t.Insert(appendPos, Fragment{body})
	}
	return t.Insert(t.Size(), Fragment{NewRule(), NewFootnoteContainer(body)})
}
