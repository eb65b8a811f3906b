package convert

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// HTMLConverter normalizes HTML/XHTML uploads: the markup is already the
// target representation, so it is parsed and re-rendered (fixing
// malformed nesting), optionally after sanitization.
type HTMLConverter struct {
	Sanitize bool
}

func (c *HTMLConverter) Convert(r io.Reader, filename string) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if c.Sanitize {
		data = sanitizeHTML(data)
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeHTML strips scripts, inline handlers, and styling while
// keeping the structural elements splitting depends on (headings,
// paragraphs, tables, lists).
func sanitizeHTML(data []byte) []byte {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("html", "head", "title", "body", "section", "article")
	return policy.SanitizeBytes(data)
}

// trimExt strips a known extension for use as a fallback title.
func trimExt(filename string, exts ...string) string {
	for _, ext := range exts {
		if strings.HasSuffix(strings.ToLower(filename), ext) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return filename
}
