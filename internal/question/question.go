package question

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Explanation is the structured rationale attached to one question.
type Explanation struct {
	Core     string `json:"core"`
	Analysis string `json:"analysis"`
	Evidence string `json:"evidence"`
	Warning  string `json:"warning,omitempty"`
}

// Question is one extracted multiple-choice question. Every field is
// optional; a missing field decodes to its zero value.
type Question struct {
	ID            string      `json:"id,omitempty"`
	Question      string      `json:"question"`
	Options       []string    `json:"options"`
	CorrectAnswer string      `json:"correctAnswer"`
	Explanation   Explanation `json:"explanation"`
	Difficulty    string      `json:"difficulty"`
	Source        string      `json:"source"`
	DepthAnalysis string      `json:"depthAnalysis,omitempty"`
}

// UnmarshalJSON decodes a record with best-effort field lookup. Records that
// are not JSON objects decode to an empty Question instead of failing.
func (q *Question) UnmarshalJSON(data []byte) error {
	*q = Question{}
	fields, ok := objectFields(data)
	if !ok {
		return nil
	}
	q.ID = text(lookup(fields, "id"))
	q.Question = text(lookup(fields, "question"))
	q.Options = options(lookup(fields, "options"))
	q.CorrectAnswer = text(lookup(fields, "correctAnswer", "correct_answer", "answer"))
	q.Explanation = explanation(lookup(fields, "explanation"))
	q.Difficulty = text(lookup(fields, "difficulty"))
	q.Source = text(lookup(fields, "source"))
	q.DepthAnalysis = text(lookup(fields, "depthAnalysis", "depth_analysis"))
	return nil
}

// UnmarshalJSON accepts either the structured object or a bare string, which
// is taken as the core rationale.
func (e *Explanation) UnmarshalJSON(data []byte) error {
	*e = explanation(data)
	return nil
}

// CorrectIndex resolves CorrectAnswer to a 0-based option index. Tokens such
// as "a", "A." and "A)" are accepted. It reports false when the token is not
// a letter or points past the end of Options.
func (q Question) CorrectIndex() (int, bool) {
	s := strings.TrimSpace(q.CorrectAnswer)
	s = strings.TrimRight(s, ".):] ")
	if len([]rune(s)) != 1 {
		return -1, false
	}
	r := unicode.ToUpper([]rune(s)[0])
	if r < 'A' || r > 'Z' {
		return -1, false
	}
	idx := int(r - 'A')
	if idx >= len(q.Options) {
		return -1, false
	}
	return idx, true
}

// Letter returns the option label for a 0-based index ("A" for 0).
func Letter(i int) string {
	if i < 0 || i >= 26 {
		return ""
	}
	return string(rune('A' + i))
}

// WithIDs returns a copy of qs where records lacking an ID get
// "<runID>-<n>" with n counted from 1.
func WithIDs(qs []Question, runID string) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		if strings.TrimSpace(q.ID) == "" {
			q.ID = fmt.Sprintf("%s-%d", runID, i+1)
		}
		out[i] = q
	}
	return out
}

func objectFields(data []byte) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func lookup(fields map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v
		}
	}
	return nil
}

// text renders a JSON value as a string. Strings are unquoted, null is
// empty, and anything else keeps its compact JSON text.
func text(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

func options(raw json.RawMessage) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, text(it))
		}
		return out
	case '{':
		// {"A": "...", "B": "..."} keyed by letter
		var m map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, text(m[k]))
		}
		return out
	default:
		if s := text(trimmed); s != "" {
			return []string{s}
		}
		return nil
	}
}

func explanation(raw json.RawMessage) Explanation {
	fields, ok := objectFields(raw)
	if !ok {
		return Explanation{Core: text(raw)}
	}
	return Explanation{
		Core:     text(lookup(fields, "core")),
		Analysis: text(lookup(fields, "analysis")),
		Evidence: text(lookup(fields, "evidence")),
		Warning:  text(lookup(fields, "warning")),
	}
}
