// Package output writes resolved sections to disk, one file per outline
// entry, as XHTML or Markdown.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/guppie70/sectioner/internal/document"
	"github.com/guppie70/sectioner/internal/extract"
	"github.com/guppie70/sectioner/internal/outline"
)

// Format selects the on-disk representation of a section.
type Format string

const (
	FormatXHTML    Format = "xhtml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format string, defaulting empty to XHTML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "xhtml", "html":
		return FormatXHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

func (f Format) ext() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return ".xhtml"
}

// SectionWriter implements align.Sink: it slices the fragment between
// the two boundary headings, normalizes its heading levels, and writes
// the templated result under Dir.
type SectionWriter struct {
	Doc    *document.Document
	Dir    string
	Format Format

	log *slog.Logger
	md  *htmltomarkdown.Converter
}

func NewSectionWriter(doc *document.Document, dir string, format Format, log *slog.Logger) (*SectionWriter, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	w := &SectionWriter{Doc: doc, Dir: dir, Format: format, log: log}
	if format == FormatMarkdown {
		w.md = htmltomarkdown.NewConverter(
			htmltomarkdown.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
	}
	return w, nil
}

// WriteSection extracts, normalizes, templates, and serializes one
// section. The returned ref is the file name relative to Dir.
func (w *SectionWriter) WriteSection(ctx context.Context, entry *outline.Entry, start, end *document.Heading) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	nodes, err := extract.Section(w.Doc, start, end)
	if err != nil {
		return "", fmt.Errorf("extract %q: %w", entry.Title, err)
	}
	extract.NormalizeLevels(nodes)

	data, err := extract.Render(entry.Title, nodes)
	if err != nil {
		return "", err
	}

	if w.Format == FormatMarkdown {
		md, err := w.md.ConvertString(string(data))
		if err != nil {
			return "", fmt.Errorf("markdown convert %q: %w", entry.Title, err)
		}
		data = []byte(md)
	}

	name := fileName(entry, w.Format)
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	w.log.Debug("section written", "file", name, "bytes", len(data))
	return name, nil
}

func fileName(entry *outline.Entry, format Format) string {
	ref := entry.OutputRef
	if ref == "" {
		ref = outline.Slug(entry.Title)
	}
	// Keep refs path-safe; they come from user-supplied outlines.
	ref = filepath.Base(ref)
	if filepath.Ext(ref) == "" {
		ref += format.ext()
	}
	return ref
}
