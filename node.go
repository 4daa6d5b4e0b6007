package foliate

import "unicode/utf8"

// Attrs holds a node's attributes. Values are stored as strings so that
// serialization never loses the raw form.
type Attrs map[string]string

// clone returns an independent copy of the attribute map.
func (a Attrs) clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Node is one node in the document tree. Text nodes carry Text and no
// children; atomic nodes carry neither; all other kinds carry children.
type Node struct {
	Kind     NodeKind
	Attrs    Attrs
	Text     string
	Children []*Node
}

// Fragment is an ordered slice of sibling nodes, the unit of insertion.
type Fragment []*Node

// Span returns the number of token positions the node occupies: the rune
// count for text, 1 for atomic nodes, and 2 plus the children's spans for
// anything else (an open and a close token).
func (n *Node) Span() int {
	spec := SpecFor(n.Kind)
	switch {
	case n.Kind == KindText:
		return utf8.RuneCountInString(n.Text)
	case spec.Atomic:
		return 1
	default:
		return 2 + n.contentSpan()
	}
}

// contentSpan returns the combined span of the node's children.
func (n *Node) contentSpan() int {
	total := 0
	for _, c := range n.Children {
		total += c.Span()
	}
	return total
}

// Clone returns a deep copy of the node and its subtree.
func (n *Node) Clone() *Node {
	out := &Node{
		Kind:  n.Kind,
		Attrs: n.Attrs.clone(),
		Text:  n.Text,
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Equal reports whether two subtrees have identical structure, attributes,
// and text.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind || n.Text != other.Text {
		return false
	}
	if len(n.Attrs) != len(other.Attrs) {
		return false
	}
	for k, v := range n.Attrs {
		if other.Attrs[k] != v {
			return false
		}
	}
	if len(n.Children) != len(other.Children) {
		return false
	}
	for i, c := range n.Children {
		if !c.Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// FootnoteID returns the node's footnoteId attribute, or "" if absent.
func (n *Node) FootnoteID() string {
	return n.Attrs[AttrFootnoteID]
}

// Label returns the node's label attribute, or "" if absent.
func (n *Node) Label() string {
	return n.Attrs[AttrLabel]
}

// InnerText returns the concatenated text of the subtree in document order.
func (n *Node) InnerText() string {
	if n.Kind == KindText {
		return n.Text
	}
	out := ""
	for _, c := range n.Children {
		out += c.InnerText()
	}
	return out
}

// Node constructors. Builders return the node so fragments can be assembled
// inline at call sites.

// NewText creates an inline text leaf.
func NewText(text string) *Node {
	return &Node{Kind: KindText, Text: text}
}

// NewParagraph creates a paragraph holding the given inline children.
func NewParagraph(inline ...*Node) *Node {
	return &Node{Kind: KindParagraph, Children: inline}
}

// NewBlockquote creates a blockquote holding the given blocks.
func NewBlockquote(blocks ...*Node) *Node {
	return &Node{Kind: KindBlockquote, Children: blocks}
}

// NewRule creates a horizontal-rule separator.
func NewRule() *Node {
	return &Node{Kind: KindRule}
}

// NewFootnoteRef creates an inline footnote marker.
func NewFootnoteRef(footnoteID, label string) *Node {
	return &Node{
		Kind:  KindFootnoteRef,
		Attrs: Attrs{AttrFootnoteID: footnoteID, AttrLabel: label},
	}
}

// NewFootnoteBody creates a footnote body holding the given inline content.
func NewFootnoteBody(footnoteID, label string, inline ...*Node) *Node {
	return &Node{
		Kind:     KindFootnoteBody,
		Attrs:    Attrs{AttrFootnoteID: footnoteID, AttrLabel: label},
		Children: inline,
	}
}

// NewFootnoteContainer creates the footnote section wrapping the given
// bodies.
func NewFootnoteContainer(bodies ...*Node) *Node {
	return &Node{Kind: KindFootnoteContainer, Children: bodies}
}
