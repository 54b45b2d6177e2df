package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tranhoait123/anki-mcq-export/internal/question"
)

// OptionColumns is the fixed number of option columns in an export row.
const OptionColumns = 5

// DefaultPrefix names export files when no prefix is configured.
const DefaultPrefix = "ankigen_pro"

// Header is the column layout of every tabular export.
var Header = []string{"Question", "A", "B", "C", "D", "E", "CorrectAnswer", "ExplanationHTML", "Source", "Difficulty"}

// ErrNotSequence is returned when a question set is not a JSON list.
var ErrNotSequence = errors.New("question set is not a list")

// Row is the flattened form of one question.
type Row struct {
	Question        string
	Options         [OptionColumns]string
	CorrectAnswer   string
	ExplanationHTML string
	Source          string
	Difficulty      string
}

// Cells returns the row in Header order.
func (r Row) Cells() []string {
	cells := make([]string, 0, len(Header))
	cells = append(cells, r.Question)
	cells = append(cells, r.Options[:]...)
	return append(cells, r.CorrectAnswer, r.ExplanationHTML, r.Source, r.Difficulty)
}

// RowFrom flattens q. Options beyond the fifth do not get a column; they
// are listed inside the explanation fragment instead.
func RowFrom(q question.Question, opts HTMLOptions) Row {
	r := Row{
		Question:        q.Question,
		CorrectAnswer:   q.CorrectAnswer,
		ExplanationHTML: ExplanationHTML(q, opts),
		Source:          q.Source,
		Difficulty:      q.Difficulty,
	}
	for i := 0; i < OptionColumns && i < len(q.Options); i++ {
		r.Options[i] = q.Options[i]
	}
	return r
}

// Rows flattens every question in order.
func Rows(qs []question.Question, opts HTMLOptions) []Row {
	rows := make([]Row, 0, len(qs))
	for _, q := range qs {
		rows = append(rows, RowFrom(q, opts))
	}
	return rows
}

// FileName returns "<prefix>_<count>cau.<ext>".
func FileName(prefix string, count int, ext string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	prefix = strings.NewReplacer("/", "_", "\\", "_", string(filepath.Separator), "_").Replace(prefix)
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "csv"
	}
	return fmt.Sprintf("%s_%dcau.%s", prefix, count, ext)
}

// Decode reads a previously saved question set. The top level must be a
// JSON list; records inside it are decoded leniently.
func Decode(data []byte) ([]question.Question, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, bom))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotSequence
	}
	var qs []question.Question
	if err := json.Unmarshal(trimmed, &qs); err != nil {
		return nil, fmt.Errorf("decode question set: %w", err)
	}
	return qs, nil
}
