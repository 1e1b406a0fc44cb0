// Package extract turns uploaded source files into plain text.
package extract

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br[^>]*/>|<w:cr[^>]*/>`)
	docxTab          = regexp.MustCompile(`<w:tab[^>]*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]*>`)
)

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// Extractor reads pdf, docx, txt and md files.
type Extractor struct {
	keepParagraphs bool
}

// New creates an Extractor. With keepParagraphs, runs of blank lines collapse
// to a single blank line instead of being dropped.
func New(keepParagraphs bool) *Extractor {
	return &Extractor{keepParagraphs: keepParagraphs}
}

// IsSupported reports whether filename has an extension Extract can read.
func IsSupported(filename string) bool {
	_, ok := contentTypes[ext(filename)]
	return ok
}

// ContentType returns the MIME type for a supported filename.
func ContentType(filename string) string {
	if ct, ok := contentTypes[ext(filename)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Extract returns the normalized text of data, dispatching on the filename
// extension.
func (e *Extractor) Extract(filename string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch ext(filename) {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	case ".txt", ".md":
		text = string(data)
	default:
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrUnsupportedFileType.Message, fmt.Errorf("%q", filepath.Ext(filename)))
	}
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, domain.ErrExtractionFailed.Message, err)
	}
	return Normalize(text, e.keepParagraphs), nil
}

// Normalize collapses whitespace inside every line and drops empty lines.
// With keepParagraphs a single blank line is kept between non-empty runs.
func Normalize(text string, keepParagraphs bool) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	pendingBreak := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			pendingBreak = len(out) > 0
			continue
		}
		if keepParagraphs && pendingBreak {
			out = append(out, "")
		}
		pendingBreak = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// extractPDF joins the plain text of every non-empty page with a blank line.
func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		if strings.TrimSpace(pageText) != "" {
			pages = append(pages, pageText)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// extractDOCX strips the document body XML down to its text, one paragraph
// per line.
func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, " ")
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content), nil
}

func ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
