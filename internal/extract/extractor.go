package extract

// Extractor converts the raw bytes of one document format into text.
type Extractor interface {
	Extract(input []byte) (Document, error)
}

// ExtractorFunc adapts a plain function to Extractor.
type ExtractorFunc func(input []byte) (Document, error)

func (f ExtractorFunc) Extract(input []byte) (Document, error) { return f(input) }

// HTMLExtractor never fails; unparseable markup yields an empty Document.
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(input []byte) (Document, error) {
	return FromHTML(input), nil
}

type DOCXExtractor struct{}

func (DOCXExtractor) Extract(input []byte) (Document, error) { return FromDOCX(input) }

type PDFExtractor struct{}

func (PDFExtractor) Extract(input []byte) (Document, error) { return FromPDF(input) }
