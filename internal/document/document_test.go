package document

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/tranhoait123/anki-mcq-export/internal/extract"
)

func TestNormalize_ImageAndPDFPassThroughAsBinary(t *testing.T) {
	n := Normalizer{}
	for _, u := range []Upload{
		{Name: "page.png", MediaType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
		{Name: "exam.pdf", MediaType: "application/pdf", Data: []byte("%PDF-1.4 raw")},
	} {
		p, err := n.Normalize(u)
		if err != nil {
			t.Fatalf("%s: %v", u.Name, err)
		}
		if p.Kind != KindBinary || p.MediaType != u.MediaType {
			t.Fatalf("%s: want binary %s, got %v %s", u.Name, u.MediaType, p.Kind, p.MediaType)
		}
		if !bytes.Equal(p.Data, u.Data) {
			t.Fatalf("%s: bytes must pass through unmodified", u.Name)
		}
	}
}

func TestNormalize_PlainTextDecodesUTF8AndDropsBOM(t *testing.T) {
	data := append([]byte("\xEF\xBB\xBF"), []byte("Câu 1: Sốt xuất huyết")...)
	p, err := Normalizer{}.Normalize(Upload{Name: "doc.txt", MediaType: "text/plain; charset=utf-8", Data: data})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.Kind != KindText || p.Text != "Câu 1: Sốt xuất huyết" {
		t.Fatalf("unexpected part %+v", p)
	}
}

func TestNormalize_UTF16WithBOM(t *testing.T) {
	// "Hi" in UTF-16LE with BOM
	data := []byte{0xFF, 0xFE, 'H', 0x00, 'i', 0x00}
	p, err := Normalizer{}.Normalize(Upload{Name: "u16.txt", MediaType: "text/plain", Data: data})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.Text != "Hi" {
		t.Fatalf("text=%q want Hi", p.Text)
	}
}

func TestNormalize_DOCXExtractsParagraphs(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/document.xml")
	_, _ = w.Write([]byte(`<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>one</w:t></w:r></w:p><w:p><w:r><w:t>two</w:t></w:r></w:p></w:body></w:document>`))
	_ = zw.Close()

	p, err := Normalizer{}.Normalize(Upload{Name: "de.docx", MediaType: MediaTypeDOCX, Data: buf.Bytes()})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.Kind != KindText || p.Text != "one\ntwo" {
		t.Fatalf("unexpected part %+v", p)
	}
}

func TestNormalize_UnknownTypeFallsBackToText(t *testing.T) {
	p, err := Normalizer{}.Normalize(Upload{Name: "notes.weird", MediaType: "application/x-weird", Data: []byte("plain words")})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.Kind != KindText || p.Text != "plain words" {
		t.Fatalf("unexpected part %+v", p)
	}
}

func TestNormalize_PDFTextModeUsesExtractor(t *testing.T) {
	n := Normalizer{
		PDFText: true,
		PDF: extract.ExtractorFunc(func(b []byte) (extract.Document, error) {
			return extract.Document{Text: "pdf text"}, nil
		}),
	}
	p, err := n.Normalize(Upload{Name: "a.pdf", MediaType: MediaTypePDF, Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.Kind != KindText || p.Text != "pdf text" {
		t.Fatalf("unexpected part %+v", p)
	}
}

func TestNormalizeAll_IsolatesFailures(t *testing.T) {
	uploads := []Upload{
		{Name: "a.txt", MediaType: "text/plain", Data: []byte("first")},
		{Name: "bad.txt", MediaType: "text/plain", Data: []byte{0xC3, 0x28}},
		{Name: "empty.txt", MediaType: "text/plain"},
		{Name: "b.png", MediaType: "image/png", Data: []byte{1, 2, 3}},
	}
	batch := Normalizer{}.NormalizeAll(uploads)
	if len(batch.Parts) != 2 {
		t.Fatalf("want 2 parts, got %d", len(batch.Parts))
	}
	if batch.Parts[0].Name != "a.txt" || batch.Parts[1].Name != "b.png" {
		t.Fatalf("order not preserved: %+v", batch.Parts)
	}
	if len(batch.Failures) != 2 {
		t.Fatalf("want 2 failures, got %d", len(batch.Failures))
	}
	if !errors.Is(batch.Failures[0], ErrInvalidUTF8) || batch.Failures[0].Name != "bad.txt" {
		t.Fatalf("unexpected failure %+v", batch.Failures[0])
	}
	if !errors.Is(batch.Failures[1], ErrEmpty) {
		t.Fatalf("unexpected failure %+v", batch.Failures[1])
	}
}

func TestResolveMediaType(t *testing.T) {
	cases := []struct {
		name, declared string
		data           []byte
		want           string
	}{
		{"a.txt", "text/plain; charset=utf-8", nil, "text/plain"},
		{"a.docx", "", nil, MediaTypeDOCX},
		{"a.docx", MediaTypeOctet, nil, MediaTypeDOCX},
		{"a.pdf", "", nil, MediaTypePDF},
		{"blob", "", []byte("%PDF-1.7\n"), MediaTypePDF},
		{"blob", "", []byte("hello world"), "text/plain"},
		{"IMG.PNG", "IMAGE/PNG", nil, "image/png"},
	}
	for _, c := range cases {
		if got := ResolveMediaType(c.name, c.declared, c.data); got != c.want {
			t.Fatalf("ResolveMediaType(%q,%q) = %q want %q", c.name, c.declared, got, c.want)
		}
	}
}
