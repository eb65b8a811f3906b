package convert

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Tree is the intermediate representation converters build before XHTML
// serialization: a title plus nested sections.
type Tree struct {
	Title    string
	Children []*Node
}

// Node is one section: a heading plus its text and subsections.
type Node struct {
	Title    string
	Text     string
	Children []*Node
}

// ToXHTML serializes a Tree into the normalized XHTML document the
// splitter consumes: headings h1–h6 from nesting depth, paragraphs from
// double-newline separated text blocks.
func ToXHTML(t *Tree) ([]byte, error) {
	doc := &html.Node{Type: html.DocumentNode}

	root := elem(atom.Html, "html")
	doc.AppendChild(root)

	head := elem(atom.Head, "head")
	root.AppendChild(head)
	meta := elem(atom.Meta, "meta")
	meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
	head.AppendChild(meta)
	titleNode := elem(atom.Title, "title")
	titleNode.AppendChild(text(t.Title))
	head.AppendChild(titleNode)

	body := elem(atom.Body, "body")
	root.AppendChild(body)

	var emit func(nodes []*Node, level int)
	emit = func(nodes []*Node, level int) {
		for _, n := range nodes {
			if n.Title != "" {
				h := headingElem(level)
				h.AppendChild(text(n.Title))
				body.AppendChild(h)
			}
			for _, para := range strings.Split(n.Text, "\n\n") {
				para = strings.TrimSpace(para)
				if para == "" {
					continue
				}
				p := elem(atom.P, "p")
				p.AppendChild(text(para))
				body.AppendChild(p)
			}
			emit(n.Children, level+1)
		}
	}
	emit(t.Children, 1)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render xhtml: %w", err)
	}
	return buf.Bytes(), nil
}

var headingLevels = [...]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

func headingElem(level int) *html.Node {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return elem(headingLevels[level-1], fmt.Sprintf("h%d", level))
}

func elem(a atom.Atom, data string) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: data}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
