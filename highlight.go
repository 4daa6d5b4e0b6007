package foliate

import (
	"time"

	"go.uber.org/zap"
)

// highlightDuration is how long a flash stays visible.
const highlightDuration = 1500 * time.Millisecond

// HighlightRange is the session's single ephemeral flash slot. It is not
// part of the document: it is never serialized and does not survive a
// round-trip through markup.
type HighlightRange struct {
	From  int
	To    int
	Start time.Time
}

// Decoration is a non-persisted visual overlay computed at render time.
type Decoration struct {
	From  int
	To    int
	Class string
}

// flashClass is the CSS class projected for the highlight flash.
const flashClass = "flash-highlight"

// FlashHighlight records a transient highlight over [from, to], signals a
// view refresh, and schedules the slot to clear after highlightDuration.
// A new flash supersedes any pending one: the superseded timer compares
// the recorded start time on firing and becomes a no-op.
func (s *Session) FlashHighlight(from, to int) {
	s.hlMu.Lock()
	if s.closed {
		s.hlMu.Unlock()
		return
	}
	slot := &HighlightRange{From: from, To: to, Start: time.Now()}
	s.hlSlot = slot
	start := slot.Start
	s.hlMu.Unlock()

	s.logger.Debug("highlight flash", zap.Int("from", from), zap.Int("to", to))
	s.invalidateView()

	time.AfterFunc(highlightDuration, func() {
		s.expireHighlight(start)
	})
}

// expireHighlight clears the slot if it still belongs to the flash that
// scheduled this expiry. A stale timer (a newer flash has replaced the
// slot, or the session closed) is a no-op rather than an erroneous clear.
func (s *Session) expireHighlight(start time.Time) {
	s.hlMu.Lock()
	cleared := false
	if s.hlSlot != nil && s.hlSlot.Start.Equal(start) {
		s.hlSlot = nil
		cleared = true
	}
	s.hlMu.Unlock()

	if cleared {
		s.logger.Debug("highlight expired")
		s.invalidateView()
	}
}

// Decorations projects the current ephemeral state as render-time
// decorations: zero or one inline highlight spanning the flash range,
// clamped to the current document bounds. An empty clamped range renders
// nothing.
func (s *Session) Decorations() []Decoration {
	s.hlMu.Lock()
	slot := s.hlSlot
	s.hlMu.Unlock()

	if slot == nil {
		return nil
	}

	size := s.doc.Size()
	from, to := slot.From, slot.To
	if from < 0 {
		from = 0
	}
	if to > size {
		to = size
	}
	if from >= to {
		return nil
	}
	return []Decoration{{From: from, To: to, Class: flashClass}}
}
