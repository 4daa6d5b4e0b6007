package foliate

// Document is an editable structured document. The root node is an implicit
// container whose open and close tokens are not addressable: positions run
// from 0 to Size() across the top-level blocks.
type Document struct {
	root *Node
}

// NewDocument creates a document from top-level blocks. Blocks that the
// schema does not allow at top level are rejected.
func NewDocument(blocks ...*Node) (*Document, error) {
	root := &Node{Kind: KindDocument, Children: blocks}
	if err := validateNode(root); err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// Root returns the document's root node. Callers must treat the tree as
// read-only; all mutation goes through a Transaction.
func (d *Document) Root() *Node {
	return d.root
}

// Size returns the total token span of the document's content.
func (d *Document) Size() int {
	return d.root.contentSpan()
}

// Visitor is invoked for each node in document order with the position of
// the node's first token. Returning false stops the walk early.
type Visitor func(n *Node, pos int) bool

// Walk performs a depth-first, document-order traversal.
func (d *Document) Walk(fn Visitor) {
	walkNode(d.root, 0, fn)
}

// walkNode visits the children of n, whose content region begins at start.
// Returns false if the visitor stopped the walk.
func walkNode(n *Node, start int, fn Visitor) bool {
	off := start
	for _, c := range n.Children {
		if !fn(c, off) {
			return false
		}
		if !SpecFor(c.Kind).Atomic && c.Kind != KindText {
			if !walkNode(c, off+1, fn) {
				return false
			}
		}
		off += c.Span()
	}
	return true
}

// NodeAt resolves a position to the node whose first token sits exactly
// there, or nil if no node starts at that position.
func (d *Document) NodeAt(pos int) *Node {
	return nodeAt(d.root, pos)
}

func nodeAt(root *Node, pos int) *Node {
	var found *Node
	walkNode(root, 0, func(n *Node, p int) bool {
		if p == pos {
			found = n
			return false
		}
		return p < pos
	})
	return found
}

// findFirst returns the first node of the given kind in document order,
// with the position of its first token. Returns (nil, 0) if absent.
func findFirst(root *Node, kind NodeKind) (*Node, int) {
	var found *Node
	foundPos := 0
	walkNode(root, 0, func(n *Node, p int) bool {
		if n.Kind == kind {
			found = n
			foundPos = p
			return false
		}
		return true
	})
	return found, foundPos
}
