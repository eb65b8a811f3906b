// Package outline holds the expected section hierarchy that guides
// splitting. An outline is supplied externally (YAML or Markdown); the
// engine consumes it as a pre-order flattened sequence.
package outline

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Entry is one node of the expected hierarchy. Entries are immutable for
// the duration of a run.
type Entry struct {
	ID        string   `yaml:"id,omitempty"`
	Level     int      `yaml:"-"`
	Title     string   `yaml:"title"`
	OutputRef string   `yaml:"output,omitempty"`
	Children  []*Entry `yaml:"children,omitempty"`
}

// Outline is the root of the hierarchy.
type Outline struct {
	Title   string   `yaml:"title,omitempty"`
	Entries []*Entry `yaml:"sections"`
}

// Flatten returns the pre-order flattened sequence: parent, then all
// descendants, depth-first. This is the iteration order of the split
// pipeline, distinct from document order.
func (o *Outline) Flatten() []*Entry {
	var out []*Entry
	var walk func(es []*Entry)
	walk = func(es []*Entry) {
		for _, e := range es {
			out = append(out, e)
			walk(e.Children)
		}
	}
	walk(o.Entries)
	return out
}

// Load picks a loader by file extension (.yaml/.yml or .md/.markdown).
func Load(r io.Reader, filename string) (*Outline, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return LoadYAML(r)
	case ".md", ".markdown":
		return LoadMarkdown(r)
	default:
		return nil, fmt.Errorf("unsupported outline format: %s", filepath.Ext(filename))
	}
}

// finish assigns levels from nesting depth and fills in missing ids and
// output refs. IDs are dotted ordinal paths ("2.1"), stable across runs
// for a fixed outline.
func (o *Outline) finish() error {
	seen := make(map[string]bool)
	var walk func(es []*Entry, level int, prefix string) error
	walk = func(es []*Entry, level int, prefix string) error {
		for i, e := range es {
			e.Level = level
			if e.Title == "" {
				return fmt.Errorf("outline entry %s%d has no title", prefix, i+1)
			}
			if e.ID == "" {
				e.ID = fmt.Sprintf("%s%d", prefix, i+1)
			}
			if seen[e.ID] {
				return fmt.Errorf("duplicate outline entry id %q", e.ID)
			}
			seen[e.ID] = true
			if e.OutputRef == "" {
				e.OutputRef = e.ID + "-" + Slug(e.Title)
			}
			if err := walk(e.Children, level+1, e.ID+"."); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(o.Entries, 1, "")
}

// Slug lowercases a title and replaces runs of non-alphanumerics with
// single hyphens, for use in output file names.
func Slug(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
