package foliate

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Markup mapping: FootnoteRef ↔ <sup class="footnote-ref"> carrying
// footnoteId/label data attributes, FootnoteBody ↔ <div
// class="footnote-body"> with the same attributes, FootnoteContainer ↔
// <div class="footnotes">. The highlight slot is never written and never
// read back.
const (
	attrDataFootnoteID = "data-footnote-id"
	attrDataLabel      = "data-label"
	classFootnoteRef   = "footnote-ref"
	classFootnoteBody  = "footnote-body"
	classFootnotes     = "footnotes"
)

// ParseDocument reconstructs a document from its markup form. Unknown
// elements degrade to a paragraph holding their text content.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	body := findHTMLElement(root, atom.Body)
	if body == nil {
		return nil, ErrMalformedMarkup
	}

	var blocks []*Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		block := parseBlock(c)
		if block != nil {
			blocks = append(blocks, block)
		}
	}
	return NewDocument(blocks...)
}

// WriteHTML serializes the document as a markup fragment.
func (d *Document) WriteHTML(w io.Writer) error {
	for _, block := range d.root.Children {
		if err := html.Render(w, renderNode(block)); err != nil {
			return fmt.Errorf("render markup: %w", err)
		}
	}
	return nil
}

// HTML returns the document's markup form as a string.
func (d *Document) HTML() (string, error) {
	var sb strings.Builder
	if err := d.WriteHTML(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func findHTMLElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findHTMLElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func htmlAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(htmlAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// parseBlock converts one block-level markup node, or nil for ignorable
// content (whitespace between blocks).
func parseBlock(n *html.Node) *Node {
	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return nil
		}
		return NewParagraph(NewText(text))
	case html.ElementNode:
		// handled below
	default:
		return nil
	}

	switch n.DataAtom {
	case atom.P:
		return NewParagraph(parseInline(n)...)
	case atom.Blockquote:
		var inner []*Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if block := parseBlock(c); block != nil {
				inner = append(inner, block)
			}
		}
		return NewBlockquote(inner...)
	case atom.Hr:
		return NewRule()
	case atom.Div:
		if hasClass(n, classFootnotes) {
			return parseContainer(n)
		}
	}

	// Unknown element: degrade to its text content.
	text := strings.TrimSpace(textContent(n))
	if text == "" {
		return nil
	}
	return NewParagraph(NewText(text))
}

// parseInline converts the inline content of a markup element. Inline
// elements other than footnote markers are flattened to their text.
func parseInline(n *html.Node) []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			if c.Data != "" {
				out = append(out, NewText(c.Data))
			}
		case c.Type == html.ElementNode && c.DataAtom == atom.Sup && htmlAttr(c, attrDataFootnoteID) != "":
			label := htmlAttr(c, attrDataLabel)
			if label == "" {
				label = PlaceholderLabel
			}
			out = append(out, NewFootnoteRef(htmlAttr(c, attrDataFootnoteID), label))
		case c.Type == html.ElementNode:
			if text := textContent(c); text != "" {
				out = append(out, NewText(text))
			}
		}
	}
	return out
}

// parseContainer converts a <div class="footnotes"> element. Children that
// are not footnote bodies are skipped.
func parseContainer(n *html.Node) *Node {
	var bodies []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Div || !hasClass(c, classFootnoteBody) {
			continue
		}
		label := htmlAttr(c, attrDataLabel)
		if label == "" {
			label = PlaceholderLabel
		}
		bodies = append(bodies, NewFootnoteBody(htmlAttr(c, attrDataFootnoteID), label, parseInline(c)...))
	}
	return NewFootnoteContainer(bodies...)
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// renderNode converts a document node to its markup form.
func renderNode(n *Node) *html.Node {
	switch n.Kind {
	case KindText:
		return &html.Node{Type: html.TextNode, Data: n.Text}
	case KindParagraph:
		return renderElement(atom.P, "p", nil, n.Children)
	case KindBlockquote:
		return renderElement(atom.Blockquote, "blockquote", nil, n.Children)
	case KindRule:
		return renderElement(atom.Hr, "hr", nil, nil)
	case KindFootnoteRef:
		el := renderElement(atom.Sup, "sup", []html.Attribute{
			{Key: "class", Val: classFootnoteRef},
			{Key: attrDataFootnoteID, Val: n.FootnoteID()},
			{Key: attrDataLabel, Val: n.Label()},
		}, nil)
		el.AppendChild(&html.Node{Type: html.TextNode, Data: "[" + n.Label() + "]"})
		return el
	case KindFootnoteBody:
		return renderElement(atom.Div, "div", []html.Attribute{
			{Key: "class", Val: classFootnoteBody},
			{Key: attrDataFootnoteID, Val: n.FootnoteID()},
			{Key: attrDataLabel, Val: n.Label()},
		}, n.Children)
	case KindFootnoteContainer:
		return renderElement(atom.Div, "div", []html.Attribute{
			{Key: "class", Val: classFootnotes},
		}, n.Children)
	}
	return &html.Node{Type: html.TextNode, Data: n.InnerText()}
}

func renderElement(a atom.Atom, tag string, attrs []html.Attribute, children []*Node) *html.Node {
	el := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     tag,
		Attr:     attrs,
	}
	for _, c := range children {
		el.AppendChild(renderNode(c))
	}
	return el
}
