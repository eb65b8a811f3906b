// Package extract slices document content between two resolved boundary
// points into a standalone fragment, normalizes its heading levels, and
// serializes it into an XHTML section file.
package extract

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/guppie70/sectioner/internal/document"
)

// Section clones the document-order node range [start, end) into a list
// of detached top-level nodes. end == nil slices to the end of start's
// subtree root. Subtrees that contain the end heading are split so that
// nothing at or past the boundary leaks into the fragment.
func Section(doc *document.Document, start, end *document.Heading) ([]*html.Node, error) {
	if start == nil {
		return nil, fmt.Errorf("section has no start heading")
	}
	root := sliceRoot(start.Node)

	var endNode *html.Node
	if end != nil {
		endNode = end.Node
	}

	var out []*html.Node
	active := false
	done := false
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if done {
			return
		}
		if n == endNode {
			done = true
			return
		}
		if n == start.Node {
			active = true
		}
		if active && (endNode == nil || !contains(n, endNode)) {
			out = append(out, clone(n))
			return
		}
		for c := n.FirstChild; c != nil && !done; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if !active {
		return nil, fmt.Errorf("start heading not found under its root")
	}
	return out, nil
}

// NormalizeLevels promotes the fragment so its lead heading becomes h1,
// shifting every other heading by the same delta, clamped to h1–h6.
func NormalizeLevels(nodes []*html.Node) {
	lead := 0
	for _, n := range nodes {
		if lead = firstHeadingLevel(n); lead > 0 {
			break
		}
	}
	if lead == 0 || lead == 1 {
		return
	}
	delta := 1 - lead
	for _, n := range nodes {
		shiftHeadings(n, delta)
	}
}

// Render wraps the fragment nodes in a minimal XHTML document and
// serializes it.
func Render(title string, nodes []*html.Node) ([]byte, error) {
	doc := &html.Node{Type: html.DocumentNode}

	htmlNode := element(atom.Html, "html")
	doc.AppendChild(htmlNode)

	head := element(atom.Head, "head")
	htmlNode.AppendChild(head)

	meta := element(atom.Meta, "meta")
	meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
	head.AppendChild(meta)

	titleNode := element(atom.Title, "title")
	titleNode.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	head.AppendChild(titleNode)

	body := element(atom.Body, "body")
	htmlNode.AppendChild(body)
	for _, n := range nodes {
		body.AppendChild(n)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render section: %w", err)
	}
	return buf.Bytes(), nil
}

// sliceRoot is the node the range walk starts from: the nearest body
// ancestor when one exists, otherwise the tree root.
func sliceRoot(n *html.Node) *html.Node {
	var root *html.Node
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Body {
			return p
		}
		root = p
	}
	return root
}

func contains(n, target *html.Node) bool {
	for p := target; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// clone deep-copies a node subtree, detached from its original tree.
func clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(clone(child))
	}
	return c
}

func firstHeadingLevel(n *html.Node) int {
	if l := document.HeadingLevel(n); l > 0 {
		return l
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if l := firstHeadingLevel(c); l > 0 {
			return l
		}
	}
	return 0
}

func shiftHeadings(n *html.Node, delta int) {
	if l := document.HeadingLevel(n); l > 0 {
		nl := l + delta
		if nl < 1 {
			nl = 1
		}
		if nl > 6 {
			nl = 6
		}
		setHeadingLevel(n, nl)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		shiftHeadings(c, delta)
	}
}

var headingAtoms = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

func setHeadingLevel(n *html.Node, level int) {
	n.DataAtom = headingAtoms[level-1]
	n.Data = fmt.Sprintf("h%d", level)
}

func element(a atom.Atom, data string) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: data}
}
