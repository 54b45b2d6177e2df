package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/tranhoait123/anki-mcq-export/internal/question"
)

// PDFOptions controls the printable question sheet.
type PDFOptions struct {
	Title string
	// FontPath is a UTF-8 TrueType font. Without it the core Helvetica font
	// is used and characters outside cp1252 are lost.
	FontPath string
	// Answers appends the correct letter and core rationale to each question.
	Answers bool
}

const pdfFamily = "body"

// PDF renders qs as a printable A4 question sheet.
func PDF(qs []question.Question, opts PDFOptions) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if strings.TrimSpace(opts.FontPath) != "" {
		pdf.AddUTF8Font(pdfFamily, "", opts.FontPath)
		pdf.AddUTF8Font(pdfFamily, "B", opts.FontPath)
		family = pdfFamily
		tr = func(s string) string { return s }
	}
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	if title := strings.TrimSpace(opts.Title); title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.MultiCell(0, 8, tr(title), "", "C", false)
		pdf.Ln(4)
	}

	for i, q := range qs {
		pdf.SetFont(family, "B", 11)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(q.Question))), "", "L", false)
		pdf.SetFont(family, "", 11)
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				continue
			}
			pdf.SetX(20)
			pdf.MultiCell(0, 5, tr(question.Letter(j)+". "+strings.TrimSpace(opt)), "", "L", false)
		}
		if opts.Answers {
			answer := strings.TrimSpace(q.CorrectAnswer)
			if idx, ok := q.CorrectIndex(); ok {
				answer = question.Letter(idx)
			}
			line := "Đáp án: " + answer
			if core := strings.TrimSpace(q.Explanation.Core); core != "" {
				line += " | " + core
			}
			pdf.SetX(20)
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf render: %w", err)
	}
	return buf.Bytes(), nil
}
