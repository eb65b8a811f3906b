// Package match binds outline entries to the document headings whose
// normalized text equals the entry's title. The resulting table is what
// the alignment engine consumes; it never re-derives matches itself.
package match

import (
	"github.com/guppie70/sectioner/internal/document"
	"github.com/guppie70/sectioner/internal/outline"
)

// Candidate binds one outline entry to zero or one document heading.
// A nil Heading means the entry was not found in the document at all.
// Duplicate rows for the same entry id always reference distinct
// document positions; titles shared across *different* entries are not
// duplicates.
type Candidate struct {
	EntryID  string
	Heading  *document.Heading
	DupIndex int
	DupSize  int
}

// Duplicate reports whether this row belongs to a group of size > 1.
func (c Candidate) Duplicate() bool {
	return c.DupSize > 1
}

// Table is the ordered candidate sequence: rows follow the outline's
// pre-order flattened sequence, and the rows of a duplicate group are
// consecutive, ordered by document position.
type Table struct {
	rows    []Candidate
	byEntry map[string][]Candidate
}

// Build matches every outline entry against the document's headings
// using case-insensitive, whitespace-normalized title equality.
func Build(entries []*outline.Entry, doc *document.Document) *Table {
	t := &Table{byEntry: make(map[string][]Candidate)}
	headings := doc.Headings()

	for _, e := range entries {
		var found []*document.Heading
		for _, h := range headings {
			if document.EqualTitle(e.Title, h.Norm) {
				found = append(found, h)
			}
		}
		if len(found) == 0 {
			row := Candidate{EntryID: e.ID}
			t.rows = append(t.rows, row)
			t.byEntry[e.ID] = append(t.byEntry[e.ID], row)
			continue
		}
		for i, h := range found {
			row := Candidate{
				EntryID:  e.ID,
				Heading:  h,
				DupIndex: i,
				DupSize:  len(found),
			}
			t.rows = append(t.rows, row)
			t.byEntry[e.ID] = append(t.byEntry[e.ID], row)
		}
	}
	return t
}

// Rows returns the full ordered sequence.
func (t *Table) Rows() []Candidate {
	return t.rows
}

// ForEntry returns all rows for one outline entry id.
func (t *Table) ForEntry(id string) []Candidate {
	return t.byEntry[id]
}

// Matched returns the rows for id that have a heading.
func (t *Table) Matched(id string) []Candidate {
	var out []Candidate
	for _, c := range t.byEntry[id] {
		if c.Heading != nil {
			out = append(out, c)
		}
	}
	return out
}
