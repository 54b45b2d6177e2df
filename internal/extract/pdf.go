package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// ErrNoPDFText is returned when a PDF parses but yields no text layer, as
// with scanned pages.
var ErrNoPDFText = errors.New("pdf has no extractable text")

// FromPDF returns the plain text layer of a PDF document.
func FromPDF(data []byte) (Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return Document{}, fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return Document{}, fmt.Errorf("pdf read: %w", err)
	}
	text := normalizeWhitespace(string(b))
	if text == "" {
		return Document{}, ErrNoPDFText
	}
	return Document{Text: text}, nil
}
