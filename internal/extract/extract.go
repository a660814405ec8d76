// Package extract turns uploaded file bytes into plain text.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"docchat/internal/domain"
)

// Extractor dispatches on content type: PDFs go through the pdf reader,
// everything else is treated as UTF-8 text.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text content of the upload.
func (e *Extractor) Extract(data []byte, contentType, fileName string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty upload %q", domain.ErrExtraction, fileName)
	}
	if isPDF(contentType, fileName) {
		return extractPDF(data, fileName)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %q (%s)", domain.ErrUnsupportedFormat, fileName, contentType)
	}
	return string(data), nil
}

func isPDF(contentType, fileName string) bool {
	if contentType == "application/pdf" {
		return true
	}
	return contentType == "" && strings.HasSuffix(strings.ToLower(fileName), ".pdf")
}

func extractPDF(data []byte, fileName string) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf %q: %v", domain.ErrExtraction, fileName, err)
	}
	var buf bytes.Buffer
	b, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: read pdf text %q: %v", domain.ErrExtraction, fileName, err)
	}
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("%w: read pdf buffer %q: %v", domain.ErrExtraction, fileName, err)
	}
	text := buf.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text in pdf %q", domain.ErrExtraction, fileName)
	}
	return text, nil
}
