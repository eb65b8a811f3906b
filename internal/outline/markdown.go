package outline

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// LoadMarkdown reads an outline from a Markdown document whose headings
// name the expected sections:
//
//	# Overview
//	## Key Figures
//
// Heading depth becomes the entry level. Non-heading content is ignored.
func LoadMarkdown(r io.Reader) (*Outline, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	o := &Outline{}

	// Stack-based nesting, same scheme as heading trees elsewhere: pop
	// until the top is shallower than the new heading, then attach.
	type stackEntry struct {
		entry *Entry
		level int
	}
	root := &Entry{}
	stack := []stackEntry{{entry: root, level: 0}}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		title := strings.TrimSpace(string(headingText(h, src)))
		if title == "" {
			continue
		}
		e := &Entry{Title: title}
		for len(stack) > 1 && stack[len(stack)-1].level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].entry
		parent.Children = append(parent.Children, e)
		stack = append(stack, stackEntry{entry: e, level: h.Level})
	}

	o.Entries = root.Children
	if len(o.Entries) == 0 {
		return nil, fmt.Errorf("outline markdown has no headings")
	}
	if err := o.finish(); err != nil {
		return nil, err
	}
	return o, nil
}

// headingText collects the inline text of a heading node.
func headingText(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
		} else {
			buf.Write(headingText(c, src))
		}
	}
	return buf.Bytes()
}
