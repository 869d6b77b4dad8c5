package pdfextract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractionError wraps any failure to turn a PDF into text.
type ExtractionError struct {
	Path string
	Page int // 0 when the failure is not page specific
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("extract text from %s (page %d): %v", e.Path, e.Page, e.Err)
	}
	return fmt.Sprintf("extract text from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor turns a stored binary document into plain text.
type Extractor interface {
	Extract(path string) (string, error)
}

type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract reads every page in order and concatenates the page text as the parser
// returns it.
func (e *PDFExtractor) Extract(path string) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Path: path, Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		// nil lets the parser resolve fonts from this page's own resources.
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", &ExtractionError{Path: path, Page: i, Err: err}
		}
		sb.WriteString(pageText)
	}

	return sb.String(), nil
}
