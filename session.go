package foliate

import (
	"sync"

	"go.uber.org/zap"
)

// FinalizeHook runs as the final stage of every transaction commit, with
// the opportunity to append further steps to the same transaction before
// it becomes visible or undoable. It returns true if it appended changes.
type FinalizeHook func(t *Transaction) bool

// historyEntry snapshots a committed transaction for undo/redo. Installed
// roots are never mutated afterwards (transactions work on clones), so the
// snapshots can be installed directly.
type historyEntry struct {
	name   string
	before *Node
	after  *Node
}

// Session owns one editing session over a document: the tree itself, the
// undo/redo history, the finalize hooks, the current selection, and the
// ephemeral highlight slot. A Session is not safe for concurrent mutation;
// only the highlight expiry timer runs off-thread.
type Session struct {
	doc    *Document
	logger *zap.Logger

	hooks   []FinalizeHook
	active  *Transaction
	history []historyEntry
	histPos int

	selFrom      int
	selTo        int
	hasSelection bool

	invalidate func()

	hlMu   sync.Mutex
	hlSlot *HighlightRange

	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a structured logger. The session logs at debug level
// only. Defaults to a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithInvalidator registers the host's view-invalidation callback, invoked
// whenever the visible document or its decorations change.
func WithInvalidator(fn func()) Option {
	return func(s *Session) { s.invalidate = fn }
}

// NewSession creates an editing session over doc. The footnote consistency
// pass is registered as a finalize hook on every session.
func NewSession(doc *Document, opts ...Option) *Session {
	s := &Session{
		doc:    doc,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.OnWillFinalize(s.footnoteConsistency)
	return s
}

// Close tears the session down: the highlight slot is cleared and any
// pending expiry timer becomes a no-op.
func (s *Session) Close() {
	s.hlMu.Lock()
	s.hlSlot = nil
	s.closed = true
	s.hlMu.Unlock()
}

// Document returns the session's document.
func (s *Session) Document() *Document {
	return s.doc
}

// OnWillFinalize registers a finalize hook. Hooks run in registration
// order at the end of every commit.
func (s *Session) OnWillFinalize(h FinalizeHook) {
	s.hooks = append(s.hooks, h)
}

// SetSelection places the selection. from == to is a collapsed cursor.
func (s *Session) SetSelection(from, to int) error {
	if from < 0 || to > s.doc.Size() || from > to {
		return ErrInvalidPosition
	}
	s.selFrom, s.selTo = from, to
	s.hasSelection = true
	return nil
}

// Selection returns the current selection, if any.
func (s *Session) Selection() (from, to int, ok bool) {
	return s.selFrom, s.selTo, s.hasSelection
}

// Begin opens a transaction with a descriptive name. Only one transaction
// may be open at a time; it works on a deep copy of the tree until Commit.
func (s *Session) Begin(name string) (*Transaction, error) {
	if s.active != nil {
		return nil, ErrTransactionActive
	}
	t := &Transaction{
		sess: s,
		name: name,
		root: s.doc.root.Clone(),
	}
	s.active = t
	return t, nil
}

// finishTransaction installs a committed transaction's working root and
// records one history entry, or skips both when nothing changed so the
// host can skip an unnecessary refresh.
func (s *Session) finishTransaction(t *Transaction) {
	s.active = nil

	if !t.Changed() {
		s.logger.Debug("transaction committed with no changes",
			zap.String("name", t.name))
		return
	}

	entry := historyEntry{
		name:   t.name,
		before: s.doc.root,
		after:  t.root,
	}
	s.history = append(s.history[:s.histPos], entry)
	s.histPos++
	s.doc.root = t.root

	if s.hasSelection {
		s.selFrom = t.Map(s.selFrom)
		s.selTo = t.Map(s.selTo)
		s.clampSelection()
	}

	s.logger.Debug("transaction committed",
		zap.String("name", t.name),
		zap.Int("steps", len(t.steps)),
		zap.Int("hookSteps", t.hookSteps))
	s.invalidateView()
}

// CanUndo reports whether an undo entry is available.
func (s *Session) CanUndo() bool {
	return s.histPos > 0
}

// CanRedo reports whether a redo entry is available.
func (s *Session) CanRedo() bool {
	return s.histPos < len(s.history)
}

// Undo restores the document to its state before the most recent
// transaction. Finalize hooks do not re-run; the recorded state already
// satisfies the footnote invariants.
func (s *Session) Undo() bool {
	if s.histPos == 0 {
		return false
	}
	s.histPos--
	entry := s.history[s.histPos]
	s.doc.root = entry.before
	s.clampSelection()
	s.logger.Debug("undo", zap.String("name", entry.name))
	s.invalidateView()
	return true
}

// Redo re-applies the most recently undone transaction.
func (s *Session) Redo() bool {
	if s.histPos >= len(s.history) {
		return false
	}
	entry := s.history[s.histPos]
	s.histPos++
	s.doc.root = entry.after
	s.clampSelection()
	s.logger.Debug("redo", zap.String("name", entry.name))
	s.invalidateView()
	return true
}

// clampSelection keeps the selection inside document bounds after the
// tree changes underneath it.
func (s *Session) clampSelection() {
	if !s.hasSelection {
		return
	}
	size := s.doc.Size()
	if s.selFrom > size {
		s.selFrom = size
	}
	if s.selTo > size {
		s.selTo = size
	}
	if s.selFrom > s.selTo {
		s.selFrom = s.selTo
	}
}

// invalidateView signals the host that the document or its decorations
// need re-rendering.
func (s *Session) invalidateView() {
	if s.invalidate != nil {
		s.invalidate()
	}
}
