package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/tranhoait123/anki-mcq-export/internal/question"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// CSV serializes qs as a UTF-8 CSV with a byte-order mark, the Header row
// first and one row per question. Output depends only on its inputs.
func CSV(qs []question.Question, opts HTMLOptions) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(bom)
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	for i, r := range Rows(qs, opts) {
		if err := w.Write(r.Cells()); err != nil {
			return nil, fmt.Errorf("csv row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}
	return buf.Bytes(), nil
}
