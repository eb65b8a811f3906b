// Package convert turns uploaded source documents into the normalized
// XHTML rendering the splitter consumes. XHTML uploads pass through
// (optionally sanitized); Markdown, PDF, and DOCX are converted via an
// intermediate section tree.
package convert

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Converter produces normalized XHTML bytes from raw document bytes.
type Converter interface {
	Convert(r io.Reader, filename string) ([]byte, error)
}

// SupportedExtensions lists the input formats this service accepts.
var SupportedExtensions = map[string]bool{
	".html":  true,
	".htm":   true,
	".xhtml": true,
	".md":    true,
	".pdf":   true,
	".docx":  true,
}

// Options tune conversion behavior.
type Options struct {
	// SanitizeHTML strips scripts, event handlers, and other unsafe
	// markup from HTML uploads before parsing.
	SanitizeHTML bool

	// PDFFallbackPdftotext shells out to pdftotext when the native PDF
	// reader fails.
	PDFFallbackPdftotext bool
}

// ForFile returns the converter for a filename.
func ForFile(filename string, opts Options) (Converter, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm", ".xhtml":
		return &HTMLConverter{Sanitize: opts.SanitizeHTML}, nil
	case ".md", ".markdown":
		return &MarkdownConverter{}, nil
	case ".pdf":
		return &PDFConverter{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXConverter{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}
