// Package document models the normalized XHTML input: headings found in
// the parsed tree plus the position index used for all document-order
// comparisons.
package document

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Heading is one h1–h6 element found in the document.
type Heading struct {
	Node  *html.Node
	Level int    // 1–6
	Text  string // raw text content
	Norm  string // whitespace-collapsed, trimmed

	// Position is the heading's rank among the headings under its nearest
	// body ancestor, in depth-first order. -1 when no body ancestor exists,
	// which makes the heading incomparable to everything else.
	Position int
}

// Document wraps a parsed XHTML tree together with its heading index.
type Document struct {
	Root     *html.Node
	headings []*Heading
	byNode   map[*html.Node]*Heading
}

// Parse reads an XHTML document and builds the heading index. Positions
// are computed once here; later lookups are map hits.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return FromNode(root), nil
}

// FromNode builds a Document around an already-parsed tree.
func FromNode(root *html.Node) *Document {
	d := &Document{
		Root:   root,
		byNode: make(map[*html.Node]*Heading),
	}
	d.collect(root)
	d.indexPositions()
	return d
}

// collect gathers every heading element in depth-first order.
func (d *Document) collect(n *html.Node) {
	if level := HeadingLevel(n); level > 0 {
		text := TextContent(n)
		h := &Heading{
			Node:     n,
			Level:    level,
			Text:     text,
			Norm:     Normalize(text),
			Position: -1,
		}
		d.headings = append(d.headings, h)
		d.byNode[n] = h
		return // heading content is already extracted, don't descend
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.collect(c)
	}
}

// indexPositions assigns each heading its rank under its body root.
// Headings outside any body keep the -1 sentinel.
func (d *Document) indexPositions() {
	ranks := make(map[*html.Node]int)
	for _, h := range d.headings {
		body := bodyAncestor(h.Node)
		if body == nil {
			continue
		}
		h.Position = ranks[body]
		ranks[body]++
	}
}

// Headings returns all headings in depth-first document order.
func (d *Document) Headings() []*Heading {
	return d.headings
}

// HeadingAt returns the heading for a node, if the node is one.
func (d *Document) HeadingAt(n *html.Node) *Heading {
	return d.byNode[n]
}

// IndexOf returns h's index in the Headings slice, or -1.
func (d *Document) IndexOf(h *Heading) int {
	for i, c := range d.headings {
		if c == h {
			return i
		}
	}
	return -1
}

// After reports whether b occurs after a in document order. Incomparable
// headings (position -1) are never after anything, and nothing is after
// them.
func After(a, b *Heading) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Position < 0 || b.Position < 0 {
		return false
	}
	return b.Position > a.Position
}

// Title returns the document <title> text, or "".
func (d *Document) Title() string {
	return findTitle(d.Root)
}

// HeadingLevel returns 1–6 for h1–h6 element nodes, 0 otherwise.
func HeadingLevel(n *html.Node) int {
	if n == nil || n.Type != html.ElementNode {
		return 0
	}
	switch n.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// Normalize collapses runs of whitespace and trims.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// EqualTitle compares two titles case-insensitively after normalization.
func EqualTitle(a, b string) bool {
	return strings.EqualFold(Normalize(a), Normalize(b))
}

// TextContent concatenates all text nodes under n.
func TextContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func bodyAncestor(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Body {
			return p
		}
	}
	return nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return TextContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
