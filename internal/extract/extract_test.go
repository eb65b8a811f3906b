package extract

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/guppie70/sectioner/internal/document"
)

func parseDoc(t *testing.T, body string) *document.Document {
	t.Helper()
	d, err := document.Parse(strings.NewReader("<html><body>" + body + "</body></html>"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func renderNodes(t *testing.T, nodes []*html.Node) string {
	t.Helper()
	out, err := Render("test", nodes)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func TestSection_SlicesStartInclusiveEndExclusive(t *testing.T) {
	doc := parseDoc(t, `<h1>A</h1><p>one</p><h1>B</h1><p>two</p>`)
	hs := doc.Headings()

	nodes, err := Section(doc, hs[0], hs[1])
	if err != nil {
		t.Fatalf("section: %v", err)
	}
	got := renderNodes(t, nodes)
	if !strings.Contains(got, ">A<") || !strings.Contains(got, "one") {
		t.Errorf("section is missing its own content: %s", got)
	}
	if strings.Contains(got, ">B<") || strings.Contains(got, "two") {
		t.Errorf("content at or past the boundary leaked in: %s", got)
	}
}

func TestSection_NilEndRunsToDocumentEnd(t *testing.T) {
	doc := parseDoc(t, `<h1>A</h1><p>one</p><p>two</p>`)
	nodes, err := Section(doc, doc.Headings()[0], nil)
	if err != nil {
		t.Fatalf("section: %v", err)
	}
	got := renderNodes(t, nodes)
	if !strings.Contains(got, "one") || !strings.Contains(got, "two") {
		t.Errorf("expected everything after the start: %s", got)
	}
}

func TestSection_ContentBeforeStartExcluded(t *testing.T) {
	doc := parseDoc(t, `<p>preamble</p><h1>A</h1><p>one</p>`)
	nodes, err := Section(doc, doc.Headings()[0], nil)
	if err != nil {
		t.Fatalf("section: %v", err)
	}
	got := renderNodes(t, nodes)
	if strings.Contains(got, "preamble") {
		t.Errorf("content before the start heading leaked in: %s", got)
	}
}

func TestSection_SplitsSubtreeContainingBoundary(t *testing.T) {
	// The end heading sits inside a div together with content that still
	// belongs to the section; the div is split at the boundary.
	doc := parseDoc(t, `<h1>A</h1><div><p>inside</p><h1>B</h1><p>after</p></div>`)
	hs := doc.Headings()

	nodes, err := Section(doc, hs[0], hs[1])
	if err != nil {
		t.Fatalf("section: %v", err)
	}
	got := renderNodes(t, nodes)
	if !strings.Contains(got, "inside") {
		t.Errorf("pre-boundary content inside the split subtree is missing: %s", got)
	}
	if strings.Contains(got, ">B<") || strings.Contains(got, "after") {
		t.Errorf("boundary subtree content leaked in: %s", got)
	}
}

func TestSection_ClonesAreDetached(t *testing.T) {
	doc := parseDoc(t, `<h1>A</h1><p>one</p>`)
	nodes, err := Section(doc, doc.Headings()[0], nil)
	if err != nil {
		t.Fatalf("section: %v", err)
	}
	for i, n := range nodes {
		if n.Parent != nil {
			t.Errorf("node %d still attached to the source tree", i)
		}
		if n == doc.Headings()[0].Node {
			t.Error("section must clone, not move, source nodes")
		}
	}
}

func TestSection_NoStartHeadingIsAnError(t *testing.T) {
	doc := parseDoc(t, `<h1>A</h1>`)
	if _, err := Section(doc, nil, nil); err == nil {
		t.Fatal("expected an error for a nil start")
	}
}

func TestNormalizeLevels_LeadHeadingBecomesH1(t *testing.T) {
	doc := parseDoc(t, `<h3>Lead</h3><p>x</p><h4>Sub</h4>`)
	nodes, err := Section(doc, doc.Headings()[0], nil)
	if err != nil {
		t.Fatalf("section: %v", err)
	}
	NormalizeLevels(nodes)
	got := renderNodes(t, nodes)
	if !strings.Contains(got, "<h1>Lead</h1>") {
		t.Errorf("lead heading not promoted to h1: %s", got)
	}
	if !strings.Contains(got, "<h2>Sub</h2>") {
		t.Errorf("subordinate heading not shifted by the same delta: %s", got)
	}
}

func TestNormalizeLevels_AlreadyH1Unchanged(t *testing.T) {
	doc := parseDoc(t, `<h1>Lead</h1><h2>Sub</h2>`)
	nodes, err := Section(doc, doc.Headings()[0], nil)
	if err != nil {
		t.Fatalf("section: %v", err)
	}
	NormalizeLevels(nodes)
	got := renderNodes(t, nodes)
	if !strings.Contains(got, "<h1>Lead</h1>") || !strings.Contains(got, "<h2>Sub</h2>") {
		t.Errorf("h1-led fragment must be left alone: %s", got)
	}
}

func TestRender_WrapsFragmentInMinimalDocument(t *testing.T) {
	doc := parseDoc(t, `<h1>A</h1>`)
	nodes, err := Section(doc, doc.Headings()[0], nil)
	if err != nil {
		t.Fatalf("section: %v", err)
	}
	got := renderNodes(t, nodes)
	for _, want := range []string{"<html>", "<head>", `<meta charset="utf-8"`, "<title>test</title>", "<body>"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in rendered output: %s", want, got)
		}
	}
}
