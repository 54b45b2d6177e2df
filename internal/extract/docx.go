package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotDOCX is returned when the archive has no word/document.xml part.
var ErrNotDOCX = errors.New("not a docx document")

const docxBodyPart = "word/document.xml"

// FromDOCX returns the paragraph text of a word-processor document in
// document order. Each <w:p> becomes one line made of its <w:t> runs.
func FromDOCX(data []byte) (Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("docx zip: %w", err)
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return Document{}, ErrNotDOCX
	}
	rc, err := body.Open()
	if err != nil {
		return Document{}, fmt.Errorf("docx open %s: %w", docxBodyPart, err)
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		return Document{}, err
	}
	return Document{Text: strings.Join(paragraphs, "\n")}, nil
}

// docxParagraphs collects paragraph text. Paragraphs may nest (text boxes
// carry their own <w:p> inside a run), so each open paragraph reserves its
// slot at its start tag and fills it at its own end tag.
func docxParagraphs(r io.Reader) ([]string, error) {
	type openPara struct {
		slot int
		text strings.Builder
	}
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		stack      []*openPara
		inText     bool
	)
	top := func() *openPara {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("docx xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				stack = append(stack, &openPara{slot: len(paragraphs)})
				paragraphs = append(paragraphs, "")
			case "t":
				inText = true
			case "tab":
				if p := top(); p != nil {
					p.text.WriteString("\t")
				}
			case "br", "cr":
				if p := top(); p != nil {
					p.text.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if p := top(); p != nil {
					paragraphs[p.slot] = p.text.String()
					stack = stack[:len(stack)-1]
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if p := top(); inText && p != nil {
				p.text.Write(t)
			}
		}
	}
	return paragraphs, nil
}
