package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFromHTML_PrefersMainOverBody(t *testing.T) {
	html := `<!doctype html>
    <html>
      <head><title>Đề thi Nhi khoa</title></head>
      <body>
        <nav>Menu</nav>
        <main>
          <h1>Câu 1</h1>
          <p>Trẻ 2 tuổi sốt cao, co giật.</p>
        </main>
        <footer>Footer text</footer>
      </body>
    </html>`

	doc := FromHTML([]byte(html))
	if doc.Title != "Đề thi Nhi khoa" {
		t.Fatalf("unexpected title %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "Câu 1") || !strings.Contains(doc.Text, "Trẻ 2 tuổi sốt cao, co giật.") {
		t.Fatalf("expected main content, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "Menu") || strings.Contains(doc.Text, "Footer text") {
		t.Fatalf("navigation chrome leaked into text: %q", doc.Text)
	}
}

func TestFromHTML_ListItemsOnSeparateLines(t *testing.T) {
	html := `<html><body><ul><li>A. Sởi</li><li>B. Thủy đậu</li></ul></body></html>`
	doc := FromHTML([]byte(html))
	if !strings.Contains(doc.Text, "A. Sởi\nB. Thủy đậu") {
		t.Fatalf("expected one option per line, got %q", doc.Text)
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestFromDOCX_JoinsParagraphsWithNewlines(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Câu 1: </w:t></w:r><w:r><w:t>Thuốc nào sau đây?</w:t></w:r></w:p>
    <w:p><w:r><w:t>A. Aspirin</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>B. Heparin</w:t></w:r></w:p>
  </w:body>
</w:document>`
	doc, err := FromDOCX(buildDOCX(t, xml))
	if err != nil {
		t.Fatalf("FromDOCX: %v", err)
	}
	want := "Câu 1: Thuốc nào sau đây?\nA. Aspirin\n\nB. Heparin"
	if doc.Text != want {
		t.Fatalf("text=%q want %q", doc.Text, want)
	}
}

func TestFromDOCX_TextBoxInsideParagraph(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
  xmlns:wps="http://schemas.microsoft.com/office/word/2010/wordprocessingShape">
  <w:body>
    <w:p>
      <w:r><w:t>Câu 1: Outer stem</w:t></w:r>
      <w:r><w:drawing><wps:txbx><w:txbxContent>
        <w:p><w:r><w:t>Inner box</w:t></w:r></w:p>
      </w:txbxContent></wps:txbx></w:drawing></w:r>
      <w:r><w:t xml:space="preserve"> tail</w:t></w:r>
    </w:p>
    <w:p><w:r><w:t>Next</w:t></w:r></w:p>
  </w:body>
</w:document>`
	doc, err := FromDOCX(buildDOCX(t, xml))
	if err != nil {
		t.Fatalf("FromDOCX: %v", err)
	}
	want := "Câu 1: Outer stem tail\nInner box\nNext"
	if doc.Text != want {
		t.Fatalf("text=%q want %q", doc.Text, want)
	}
}

func TestFromDOCX_MissingBodyPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, _ = zw.Create("other.xml")
	_ = zw.Close()
	if _, err := FromDOCX(buf.Bytes()); !errors.Is(err, ErrNotDOCX) {
		t.Fatalf("want ErrNotDOCX, got %v", err)
	}
}

func TestFromDOCX_NotAZip(t *testing.T) {
	if _, err := FromDOCX([]byte("plain text")); err == nil {
		t.Fatalf("expected error for non-zip input")
	}
}

func TestFromPDF_InvalidInput(t *testing.T) {
	if _, err := FromPDF([]byte("not a pdf")); err == nil {
		t.Fatalf("expected error for invalid pdf")
	}
}

func TestExtractorFunc(t *testing.T) {
	var e Extractor = ExtractorFunc(func(b []byte) (Document, error) {
		return Document{Text: strings.ToUpper(string(b))}, nil
	})
	doc, err := e.Extract([]byte("abc"))
	if err != nil || doc.Text != "ABC" {
		t.Fatalf("unexpected %q %v", doc.Text, err)
	}
}
