package outline

import (
	"strings"
	"testing"
)

const sampleYAML = `
title: Annual Report
sections:
  - title: Introduction
  - title: Financials
    children:
      - title: Revenue
      - title: Costs
        output: costs-detail
  - id: outlook
    title: Outlook
`

func TestLoadYAML_BuildsHierarchy(t *testing.T) {
	o, err := LoadYAML(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if o.Title != "Annual Report" {
		t.Errorf("expected outline title %q, got %q", "Annual Report", o.Title)
	}
	if len(o.Entries) != 3 {
		t.Fatalf("expected 3 top-level entries, got %d", len(o.Entries))
	}
	fin := o.Entries[1]
	if len(fin.Children) != 2 {
		t.Fatalf("expected 2 children under Financials, got %d", len(fin.Children))
	}
	if fin.Children[0].Level != 2 {
		t.Errorf("expected child level 2, got %d", fin.Children[0].Level)
	}
}

func TestLoadYAML_AssignsOrdinalIDs(t *testing.T) {
	o, err := LoadYAML(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := o.Entries[0].ID; got != "1" {
		t.Errorf("expected id 1, got %q", got)
	}
	if got := o.Entries[1].Children[1].ID; got != "2.2" {
		t.Errorf("expected id 2.2, got %q", got)
	}
	// Explicit ids are kept.
	if got := o.Entries[2].ID; got != "outlook" {
		t.Errorf("expected explicit id to survive, got %q", got)
	}
}

func TestLoadYAML_OutputRefs(t *testing.T) {
	o, err := LoadYAML(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := o.Entries[0].OutputRef; got != "1-introduction" {
		t.Errorf("expected default output ref, got %q", got)
	}
	if got := o.Entries[1].Children[1].OutputRef; got != "costs-detail" {
		t.Errorf("expected explicit output ref to survive, got %q", got)
	}
}

func TestLoadYAML_DuplicateIDRejected(t *testing.T) {
	src := `
sections:
  - id: intro
    title: One
  - id: intro
    title: Two
`
	if _, err := LoadYAML(strings.NewReader(src)); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestLoadYAML_EmptyRejected(t *testing.T) {
	if _, err := LoadYAML(strings.NewReader("title: Nothing\n")); err == nil {
		t.Fatal("expected error for outline with no sections")
	}
}

func TestFlatten_PreOrder(t *testing.T) {
	o, err := LoadYAML(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var titles []string
	for _, e := range o.Flatten() {
		titles = append(titles, e.Title)
	}
	want := []string{"Introduction", "Financials", "Revenue", "Costs", "Outlook"}
	if len(titles) != len(want) {
		t.Fatalf("expected %d entries, got %d: %v", len(want), len(titles), titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], titles[i])
		}
	}
}

func TestLoadMarkdown_HeadingLevelsNest(t *testing.T) {
	src := `# Annual Report

## Introduction

## Financials

### Revenue

### Costs

## Outlook
`
	o, err := LoadMarkdown(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	flat := o.Flatten()
	if len(flat) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(flat))
	}
	if len(o.Entries) != 1 || o.Entries[0].Title != "Annual Report" {
		t.Fatalf("expected single root entry from the h1, got %d", len(o.Entries))
	}
	report := o.Entries[0]
	if len(report.Children) != 3 {
		t.Fatalf("expected 3 children under the root, got %d", len(report.Children))
	}
	fin := report.Children[1]
	if fin.Title != "Financials" || len(fin.Children) != 2 {
		t.Fatalf("expected Financials with 2 children, got %q with %d", fin.Title, len(fin.Children))
	}
	if got := fin.Children[0].ID; got != "1.2.1" {
		t.Errorf("expected id 1.2.1 for Revenue, got %q", got)
	}
}

func TestLoad_PicksByExtension(t *testing.T) {
	if _, err := Load(strings.NewReader(sampleYAML), "toc.yaml"); err != nil {
		t.Errorf("yaml: %v", err)
	}
	if _, err := Load(strings.NewReader("# T\n\n## A\n"), "toc.md"); err != nil {
		t.Errorf("markdown: %v", err)
	}
	if _, err := Load(strings.NewReader(""), "toc.txt"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestSlug(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Annual Report", "annual-report"},
		{"  Costs & Expenses!  ", "costs-expenses"},
		{"Q3 2025", "q3-2025"},
	}
	for _, c := range cases {
		if got := Slug(c.in); got != c.want {
			t.Errorf("Slug(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}
