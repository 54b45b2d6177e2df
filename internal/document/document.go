package document

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/tranhoait123/anki-mcq-export/internal/extract"
)

// Media types handled explicitly by the normalizer.
const (
	MediaTypePDF   = "application/pdf"
	MediaTypeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeText  = "text/plain"
	MediaTypeHTML  = "text/html"
	MediaTypeOctet = "application/octet-stream"
)

// Kind distinguishes parts forwarded as raw bytes from parts forwarded as
// decoded text.
type Kind int

const (
	KindText Kind = iota
	KindBinary
)

func (k Kind) String() string {
	if k == KindBinary {
		return "binary"
	}
	return "text"
}

// Upload is one user-supplied artifact.
type Upload struct {
	Name      string
	MediaType string
	Data      []byte
}

// Part is one unit of model input. Binary parts carry Data and MediaType;
// text parts carry Text.
type Part struct {
	Kind      Kind
	Name      string
	MediaType string
	Data      []byte
	Text      string
}

// Text builds a text part.
func Text(name, text string) Part {
	return Part{Kind: KindText, Name: name, MediaType: MediaTypeText, Text: text}
}

// ErrInvalidUTF8 is returned when text content is not valid UTF-8 after BOM
// handling.
var ErrInvalidUTF8 = errors.New("content is not valid UTF-8")

// ErrEmpty is returned for zero-length uploads.
var ErrEmpty = errors.New("empty file")

// FileError reports a decode failure isolated to one upload.
type FileError struct {
	// Index is the position of the upload in the slice given to
	// NormalizeAll. Names are not unique across directories.
	Index     int
	Name      string
	MediaType string
	Err       error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Name, e.MediaType, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// Batch is the outcome of normalizing a set of uploads: the usable parts in
// input order plus one FileError per upload that could not be decoded.
type Batch struct {
	Parts    []Part
	Failures []FileError
}

// Normalizer turns uploads into parts.
type Normalizer struct {
	// PDFText converts PDFs to text parts instead of forwarding the bytes.
	PDFText bool
	// HTML, DOCX and PDF override the default extractors when set.
	HTML extract.Extractor
	DOCX extract.Extractor
	PDF  extract.Extractor
}

// Normalize produces exactly one part for the upload.
func (n Normalizer) Normalize(u Upload) (Part, error) {
	mediaType := ResolveMediaType(u.Name, u.MediaType, u.Data)
	if len(u.Data) == 0 {
		return Part{}, ErrEmpty
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return binary(u, mediaType), nil
	case mediaType == MediaTypePDF:
		if !n.PDFText {
			return binary(u, mediaType), nil
		}
		return n.viaExtractor(u, mediaType, n.PDF, extract.PDFExtractor{})
	case mediaType == MediaTypeDOCX:
		return n.viaExtractor(u, mediaType, n.DOCX, extract.DOCXExtractor{})
	case mediaType == MediaTypeHTML:
		return n.viaExtractor(u, mediaType, n.HTML, extract.HTMLExtractor{})
	default:
		// text/* and anything unrecognized: best-effort UTF-8 decode
		s, err := DecodeText(u.Data)
		if err != nil {
			return Part{}, err
		}
		return Part{Kind: KindText, Name: u.Name, MediaType: mediaType, Text: s}, nil
	}
}

// NormalizeAll normalizes every upload independently. A failure is recorded
// in the returned Batch and logged; it never stops the remaining uploads.
func (n Normalizer) NormalizeAll(uploads []Upload) Batch {
	var batch Batch
	for i, u := range uploads {
		p, err := n.Normalize(u)
		if err != nil {
			fe := FileError{Index: i, Name: u.Name, MediaType: ResolveMediaType(u.Name, u.MediaType, u.Data), Err: err}
			log.Warn().Err(err).Str("file", u.Name).Str("media_type", fe.MediaType).Msg("decode failed; skipping file")
			batch.Failures = append(batch.Failures, fe)
			continue
		}
		log.Debug().Str("file", u.Name).Str("kind", p.Kind.String()).Str("media_type", p.MediaType).Msg("normalized")
		batch.Parts = append(batch.Parts, p)
	}
	return batch
}

func (n Normalizer) viaExtractor(u Upload, mediaType string, override, fallback extract.Extractor) (Part, error) {
	ex := override
	if ex == nil {
		ex = fallback
	}
	doc, err := ex.Extract(u.Data)
	if err != nil {
		return Part{}, err
	}
	return Part{Kind: KindText, Name: u.Name, MediaType: mediaType, Text: doc.Text}, nil
}

func binary(u Upload, mediaType string) Part {
	return Part{Kind: KindBinary, Name: u.Name, MediaType: mediaType, Data: u.Data}
}

// DecodeText decodes UTF-8 text. A UTF-8 BOM is dropped and UTF-16 input
// with a BOM is transcoded.
func DecodeText(data []byte) (string, error) {
	if hasUTF16BOM(data) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(unicode.BOMOverride(dec), data)
		if err != nil {
			return "", fmt.Errorf("utf-16 decode: %w", err)
		}
		return string(out), nil
	}
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}

func hasUTF16BOM(data []byte) bool {
	return len(data) >= 2 && ((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF))
}

// ResolveMediaType returns the declared media type without parameters, or
// infers one from the file extension and then the content when the
// declaration is missing or generic.
func ResolveMediaType(name, declared string, data []byte) string {
	mt := baseMediaType(declared)
	if mt != "" && mt != MediaTypeOctet {
		return mt
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return MediaTypeDOCX
	case ".txt", ".md", ".csv":
		return MediaTypeText
	case "":
	default:
		if byExt := baseMediaType(mime.TypeByExtension(filepath.Ext(name))); byExt != "" {
			return byExt
		}
	}
	if len(data) > 0 {
		if sniffed := baseMediaType(http.DetectContentType(data)); sniffed != MediaTypeOctet {
			return sniffed
		}
	}
	if mt != "" {
		return mt
	}
	return MediaTypeOctet
}

func baseMediaType(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return strings.ToLower(mt)
	}
	return strings.ToLower(s)
}
