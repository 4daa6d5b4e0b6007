package foliate

// NodeKind identifies the structural role of a node in the document tree.
type NodeKind int

const (
	// KindDocument is the implicit root. It never appears as a child.
	KindDocument NodeKind = iota

	// KindText is an inline leaf carrying a run of text.
	KindText

	// KindParagraph is a block holding inline content.
	KindParagraph

	// KindBlockquote is a block holding other blocks (quoted excerpts).
	KindBlockquote

	// KindRule is an atomic block separator (horizontal rule). A rule
	// immediately preceding the footnote container is that container's
	// separator and shares its lifecycle.
	KindRule

	// KindFootnoteRef is the inline, atomic footnote marker shown in
	// running text.
	KindFootnoteRef

	// KindFootnoteBody is the block holding one footnote's display text.
	// It lives only inside a KindFootnoteContainer.
	KindFootnoteBody

	// KindFootnoteContainer is the single block wrapping all footnote
	// bodies at the end of the document. It never exists empty.
	KindFootnoteContainer
)

// String returns a stable name for the kind, used in logs and errors.
func (k NodeKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindText:
		return "text"
	case KindParagraph:
		return "paragraph"
	case KindBlockquote:
		return "blockquote"
	case KindRule:
		return "rule"
	case KindFootnoteRef:
		return "footnote-ref"
	case KindFootnoteBody:
		return "footnote-body"
	case KindFootnoteContainer:
		return "footnote-container"
	}
	return "unknown"
}

// ContentModel describes what children a node kind accepts.
type ContentModel int

const (
	// ContentNone means the node is a leaf (text or atomic).
	ContentNone ContentModel = iota

	// ContentInline means the node holds inline children (text, refs).
	ContentInline

	// ContentBlock means the node holds block children.
	ContentBlock

	// ContentBodies means the node holds footnote bodies only.
	ContentBodies
)

// Attribute names shared by footnote refs and bodies.
const (
	// AttrFootnoteID is the opaque identity pairing a marker with its body.
	// Assigned at creation, never rewritten.
	AttrFootnoteID = "footnoteId"

	// AttrLabel is the sequential display number. Derived; only the
	// consistency pass rewrites it.
	AttrLabel = "label"

	// PlaceholderLabel is the label a marker carries between its insertion
	// and the first consistency pass of the same transaction.
	PlaceholderLabel = "0"
)

// KindSpec declares the structural rules for one node kind.
type KindSpec struct {
	Inline        bool
	Atomic        bool
	Content       ContentModel
	RequiredAttrs []string
}

var kindSpecs = map[NodeKind]KindSpec{
	KindDocument:          {Content: ContentBlock},
	KindText:              {Inline: true, Content: ContentNone},
	KindParagraph:         {Content: ContentInline},
	KindBlockquote:        {Content: ContentBlock},
	KindRule:              {Atomic: true, Content: ContentNone},
	KindFootnoteRef:       {Inline: true, Atomic: true, Content: ContentNone, RequiredAttrs: []string{AttrFootnoteID}},
	KindFootnoteBody:      {Content: ContentInline, RequiredAttrs: []string{AttrFootnoteID}},
	KindFootnoteContainer: {Content: ContentBodies},
}

// SpecFor returns the structural rules for a node kind.
func SpecFor(k NodeKind) KindSpec {
	return kindSpecs[k]
}

// allowedChild reports whether a node of kind child may appear directly
// inside a node of kind parent.
func allowedChild(parent, child NodeKind) bool {
	switch kindSpecs[parent].Content {
	case ContentInline:
		return child == KindText || child == KindFootnoteRef
	case ContentBlock:
		switch child {
		case KindParagraph, KindBlockquote, KindRule:
			return true
		case KindFootnoteContainer:
			// The container lives only at top level.
			return parent == KindDocument
		}
		return false
	case ContentBodies:
		return child == KindFootnoteBody
	}
	return false
}

// validateNode checks a node and its subtree against the schema: required
// attributes present, children allowed in this parent.
func validateNode(n *Node) error {
	spec := kindSpecs[n.Kind]
	for _, attr := range spec.RequiredAttrs {
		if n.Attrs[attr] == "" {
			return ErrSchemaViolation
		}
	}
	for _, c := range n.Children {
		if !allowedChild(n.Kind, c.Kind) {
			return ErrSchemaViolation
		}
		if err := validateNode(c); err != nil {
			return err
		}
	}
	return nil
}
