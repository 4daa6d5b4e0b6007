package foliate

import "go.uber.org/zap"

type stepKind int

const (
	stepInsert stepKind = iota
	stepDelete
	stepAttrs
)

// step records one applied edit, kept for position remapping.
type step struct {
	kind stepKind
	from int
	to   int // delete only
	size int // insert only
}

// Transaction is one atomic, undoable batch of structural edits. Steps are
// applied immediately to a working copy of the tree; nothing becomes
// visible until Commit installs the new root, and a failed step never
// leaves a partial edit behind.
type Transaction struct {
	sess      *Session
	name      string
	root      *Node
	steps     []step
	hookSteps int // steps appended by finalize hooks
	done      bool
}

// Name returns the transaction's descriptive name.
func (t *Transaction) Name() string {
	return t.name
}

// Document returns a read view over the transaction's working tree,
// reflecting all steps applied so far.
func (t *Transaction) Document() *Document {
	return &Document{root: t.root}
}

// Size returns the current token span of the working tree.
func (t *Transaction) Size() int {
	return t.root.contentSpan()
}

// Changed reports whether any step has been applied.
func (t *Transaction) Changed() bool {
	return len(t.steps) > 0
}

// Map remaps a position captured before earlier steps in this transaction:
// an insertion shifts positions at or after its gap right by its span; a
// deletion collapses positions inside its range onto the range start and
// shifts later positions left.
func (t *Transaction) Map(pos int) int {
	return t.MapSince(0, pos)
}

// StepMark returns a marker for the current step count, for use with
// MapSince.
func (t *Transaction) StepMark() int {
	return len(t.steps)
}

// MapSince remaps a position captured when StepMark returned mark, through
// only the steps applied since.
func (t *Transaction) MapSince(mark, pos int) int {
	for _, st := range t.steps[mark:] {
		switch st.kind {
		case stepInsert:
			if pos >= st.from {
				pos += st.size
			}
		case stepDelete:
			if pos >= st.to {
				pos -= st.to - st.from
			} else if pos > st.from {
				pos = st.from
			}
		}
	}
	return pos
}

// Insert splices a fragment into the working tree at pos. Inserting inline
// content into the middle of a text run splits the run; inserting block
// content into the middle of an inline block splits that block in two.
// The whole fragment is schema-checked before anything is applied.
func (t *Transaction) Insert(pos int, frag Fragment) error {
	if t.done {
		return ErrTransactionDone
	}
	if len(frag) == 0 {
		return nil
	}
	if pos < 0 || pos > t.Size() {
		return ErrInvalidPosition
	}
	for _, n := range frag {
		if err := validateNode(n); err != nil {
			return err
		}
	}
	if err := insertAt(t.root, 0, pos, frag); err != nil {
		return err
	}
	size := 0
	for _, n := range frag {
		size += n.Span()
	}
	t.steps = append(t.steps, step{kind: stepInsert, from: pos, size: size})
	return nil
}

// Delete removes the content between from and to. Nodes fully inside the
// range are removed; text runs are trimmed; a block only partially covered
// keeps its shell and loses the covered part of its content.
func (t *Transaction) Delete(from, to int) error {
	if t.done {
		return ErrTransactionDone
	}
	if from < 0 || to > t.Size() || from > to {
		return ErrInvalidPosition
	}
	if from == to {
		return nil
	}
	deleteRange(t.root, 0, from, to)
	t.steps = append(t.steps, step{kind: stepDelete, from: from, to: to})
	return nil
}

// SetAttrs merges the given attributes into the node starting at pos.
func (t *Transaction) SetAttrs(pos int, attrs Attrs) error {
	if t.done {
		return ErrTransactionDone
	}
	n := nodeAt(t.root, pos)
	if n == nil {
		return ErrNodeNotFound
	}
	if n.Attrs == nil {
		n.Attrs = make(Attrs, len(attrs))
	}
	for k, v := range attrs {
		n.Attrs[k] = v
	}
	t.steps = append(t.steps, step{kind: stepAttrs, from: pos})
	return nil
}

// Commit finalizes the transaction: registered finalize hooks run first
// and may append further steps to this same transaction, then the working
// root is installed and exactly one undo entry is recorded. A transaction
// with no effective change installs nothing and records no history.
func (t *Transaction) Commit() error {
	if t.done {
		return ErrTransactionDone
	}
	before := len(t.steps)
	for _, hook := range t.sess.hooks {
		hook(t)
	}
	t.hookSteps = len(t.steps) - before
	t.done = true
	t.sess.finishTransaction(t)
	return nil
}

// Rollback discards the transaction. The working copy is dropped; the
// session's document is untouched.
func (t *Transaction) Rollback() error {
	if t.done {
		return ErrTransactionDone
	}
	t.done = true
	t.sess.active = nil
	t.sess.logger.Debug("transaction rolled back", zap.String("name", t.name))
	return nil
}

// fragAllInline reports whether every node in the fragment is inline.
func fragAllInline(frag Fragment) bool {
	for _, n := range frag {
		if !SpecFor(n.Kind).Inline {
			return false
		}
	}
	return true
}

// spliceChildren inserts frag into parent's children at index i after
// checking each fragment node against the parent's content model.
func spliceChildren(parent *Node, i int, frag Fragment) error {
	for _, n := range frag {
		if !allowedChild(parent.Kind, n.Kind) {
			return ErrSchemaViolation
		}
	}
	children := make([]*Node, 0, len(parent.Children)+len(frag))
	children = append(children, parent.Children[:i]...)
	children = append(children, frag...)
	children = append(children, parent.Children[i:]...)
	parent.Children = children
	return nil
}

// insertAt descends to the gap at pos within parent's content region
// (which begins at contentStart) and splices the fragment there.
func insertAt(parent *Node, contentStart, pos int, frag Fragment) error {
	off := contentStart
	for i, c := range parent.Children {
		if pos == off {
			return spliceChildren(parent, i, frag)
		}
		span := c.Span()
		if pos < off+span {
			if c.Kind == KindText {
				return insertIntoText(parent, i, pos-off, frag)
			}
			if !fragAllInline(frag) && SpecFor(c.Kind).Content == ContentInline {
				return splitAndSplice(parent, i, pos-(off+1), frag)
			}
			return insertAt(c, off+1, pos, frag)
		}
		off += span
	}
	if pos == off {
		return spliceChildren(parent, len(parent.Children), frag)
	}
	return ErrInvalidPosition
}

// insertIntoText splits the text run at child index i of parent at rune
// offset at, and splices the (inline) fragment between the halves.
func insertIntoText(parent *Node, i, at int, frag Fragment) error {
	if !fragAllInline(frag) {
		return ErrSchemaViolation
	}
	text := parent.Children[i]
	runes := []rune(text.Text)
	left := NewText(string(runes[:at]))
	right := NewText(string(runes[at:]))
	replacement := make(Fragment, 0, len(frag)+2)
	if left.Text != "" {
		replacement = append(replacement, left)
	}
	replacement = append(replacement, frag...)
	if right.Text != "" {
		replacement = append(replacement, right)
	}
	for _, n := range replacement {
		if !allowedChild(parent.Kind, n.Kind) {
			return ErrSchemaViolation
		}
	}
	children := make([]*Node, 0, len(parent.Children)+len(replacement)-1)
	children = append(children, parent.Children[:i]...)
	children = append(children, replacement...)
	children = append(children, parent.Children[i+1:]...)
	parent.Children = children
	return nil
}

// splitAndSplice splits the inline-content block at child index i of
// parent at inner content offset at, and splices the (block) fragment
// between the halves. Empty halves are dropped.
func splitAndSplice(parent *Node, i, at int, frag Fragment) error {
	block := parent.Children[i]
	if at < 0 {
		at = 0
	}
	if cs := block.contentSpan(); at > cs {
		at = cs
	}
	left, right := splitInlineBlock(block, at)
	replacement := make(Fragment, 0, len(frag)+2)
	if len(left.Children) > 0 {
		replacement = append(replacement, left)
	}
	replacement = append(replacement, frag...)
	if len(right.Children) > 0 {
		replacement = append(replacement, right)
	}
	for _, n := range replacement {
		if !allowedChild(parent.Kind, n.Kind) {
			return ErrSchemaViolation
		}
	}
	children := make([]*Node, 0, len(parent.Children)+len(replacement)-1)
	children = append(children, parent.Children[:i]...)
	children = append(children, replacement...)
	children = append(children, parent.Children[i+1:]...)
	parent.Children = children
	return nil
}

// splitInlineBlock splits an inline-content block at inner offset at into
// two blocks of the same kind and attributes.
func splitInlineBlock(block *Node, at int) (*Node, *Node) {
	left := &Node{Kind: block.Kind, Attrs: block.Attrs.clone()}
	right := &Node{Kind: block.Kind, Attrs: block.Attrs.clone()}
	off := 0
	for _, c := range block.Children {
		span := c.Span()
		switch {
		case off+span <= at:
			left.Children = append(left.Children, c)
		case off >= at:
			right.Children = append(right.Children, c)
		default:
			// A text run straddles the split point.
			runes := []rune(c.Text)
			cut := at - off
			if cut > 0 {
				left.Children = append(left.Children, NewText(string(runes[:cut])))
			}
			if cut < len(runes) {
				right.Children = append(right.Children, NewText(string(runes[cut:])))
			}
		}
		off += span
	}
	return left, right
}

// deleteRange removes content between from and to within parent's content
// region, which begins at contentStart.
func deleteRange(parent *Node, contentStart, from, to int) {
	children := parent.Children[:0]
	off := contentStart
	for _, c := range parent.Children {
		span := c.Span()
		cs, ce := off, off+span
		off = ce
		switch {
		case to <= cs || from >= ce:
			children = append(children, c)
		case from <= cs && to >= ce:
			// fully covered: drop
		case c.Kind == KindText:
			runes := []rune(c.Text)
			ds := from - cs
			if ds < 0 {
				ds = 0
			}
			de := to - cs
			if de > len(runes) {
				de = len(runes)
			}
			c.Text = string(runes[:ds]) + string(runes[de:])
			if c.Text != "" {
				children = append(children, c)
			}
		default:
			// Block partially covered: keep the shell, trim its content.
			ifrom := from
			if ifrom < cs+1 {
				ifrom = cs + 1
			}
			ito := to
			if ito > ce-1 {
				ito = ce - 1
			}
			if ifrom < ito {
				deleteRange(c, cs+1, ifrom, ito)
			}
			children = append(children, c)
		}
	}
	parent.Children = children
}

// canInsertInline reports whether pos addresses a gap where inline content
// may be inserted (inside an inline-content block or within a text run).
func canInsertInline(parent *Node, contentStart, pos int) bool {
	off := contentStart
	for _, c := range parent.Children {
		if pos == off {
			return SpecFor(parent.Kind).Content == ContentInline
		}
		span := c.Span()
		if pos < off+span {
			if c.Kind == KindText {
				return true
			}
			if SpecFor(c.Kind).Atomic {
				return false
			}
			return canInsertInline(c, off+1, pos)
		}
		off += span
	}
	return pos == off && SpecFor(parent.Kind).Content == ContentInline
}
