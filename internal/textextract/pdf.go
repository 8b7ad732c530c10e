// Package textextract pulls plain text out of uploaded documents so they can
// go through the text extraction path.
package textextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a document parses but carries no text layer,
// as with scanned PDFs.
var ErrNoText = errors.New("document has no extractable text")

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// PDFText returns the plain text of every page in data, in page order.
// At most maxBytes of text are returned when maxBytes > 0.
func PDFText(data []byte, maxBytes int) (text string, err error) {
	if !IsPDF(data) {
		return "", fmt.Errorf("textextract.PDFText: not a PDF document")
	}
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("textextract.PDFText: malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("textextract.PDFText: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("textextract.PDFText: %w", err)
	}

	var src io.Reader = plain
	if maxBytes > 0 {
		src = io.LimitReader(plain, int64(maxBytes))
	}
	raw, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("textextract.PDFText: %w", err)
	}

	out := strings.TrimSpace(string(raw))
	if out == "" {
		return "", ErrNoText
	}
	return out, nil
}
