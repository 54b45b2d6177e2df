package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tranhoait123/anki-mcq-export/internal/question"
)

// WrapKey is the object key under which a question list may be wrapped.
const WrapKey = "questions"

const utf8BOM = "\ufeff"

var (
	// ErrShape marks a response whose top level is neither a list nor an
	// object wrapping a list under WrapKey.
	ErrShape = errors.New("unexpected response shape")
	// ErrParse marks a response that is not valid JSON.
	ErrParse = errors.New("response is not valid JSON")
)

// ShapeError describes why a model response could not be turned into
// question records.
type ShapeError struct {
	// Kind is ErrShape or ErrParse.
	Kind error
	// Detail is a human-readable description or the decoder message.
	Detail string
	// Err is the underlying decoder error, if any.
	Err error
}

func (e *ShapeError) Error() string {
	return e.Kind.Error() + ": " + e.Detail
}

func (e *ShapeError) Is(target error) bool { return target == e.Kind }

func (e *ShapeError) Unwrap() error { return e.Err }

// Parse converts raw model output into question records. It accepts a bare
// JSON array or an object holding the array under "questions", optionally
// inside a Markdown code fence. Any other input is an error and yields no
// records.
func Parse(raw string) ([]question.Question, error) {
	body := []byte(StripFence(raw))
	if len(body) == 0 {
		return nil, &ShapeError{Kind: ErrParse, Detail: "empty response"}
	}
	if !json.Valid(body) {
		var scratch any
		err := json.Unmarshal(body, &scratch)
		return nil, &ShapeError{Kind: ErrParse, Detail: decodeDetail(err), Err: err}
	}

	switch body[0] {
	case '[':
		return decodeList(body)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, &ShapeError{Kind: ErrParse, Detail: decodeDetail(err), Err: err}
		}
		inner, ok := obj[WrapKey]
		if !ok {
			return nil, &ShapeError{Kind: ErrShape, Detail: fmt.Sprintf("object has no %q key (keys: %s)", WrapKey, strings.Join(sortedKeys(obj), ", "))}
		}
		inner = bytes.TrimSpace(inner)
		if len(inner) == 0 || inner[0] != '[' {
			return nil, &ShapeError{Kind: ErrShape, Detail: fmt.Sprintf("%q is %s, not a list", WrapKey, jsonKind(inner))}
		}
		return decodeList(inner)
	default:
		return nil, &ShapeError{Kind: ErrShape, Detail: "top level is " + jsonKind(body) + ", not a list or object"}
	}
}

// ParseObject decodes a single JSON object reply, optionally fenced, into v.
// Anything other than an object is a ShapeError.
func ParseObject(raw string, v any) error {
	body := []byte(StripFence(raw))
	if len(body) == 0 {
		return &ShapeError{Kind: ErrParse, Detail: "empty response"}
	}
	if !json.Valid(body) {
		var scratch any
		err := json.Unmarshal(body, &scratch)
		return &ShapeError{Kind: ErrParse, Detail: decodeDetail(err), Err: err}
	}
	if body[0] != '{' {
		return &ShapeError{Kind: ErrShape, Detail: "top level is " + jsonKind(body) + ", not an object"}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &ShapeError{Kind: ErrParse, Detail: decodeDetail(err), Err: err}
	}
	return nil
}

func decodeList(data []byte) ([]question.Question, error) {
	var qs []question.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		return nil, &ShapeError{Kind: ErrParse, Detail: decodeDetail(err), Err: err}
	}
	if qs == nil {
		qs = []question.Question{}
	}
	return qs, nil
}

// StripFence drops a leading UTF-8 BOM, trims whitespace and removes one
// surrounding Markdown code fence such as ```json ... ```.
func StripFence(raw string) string {
	s := strings.TrimSpace(strings.TrimPrefix(raw, utf8BOM))
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = s[3:]
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

func decodeDetail(err error) string {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return fmt.Sprintf("%s (offset %d)", syn.Error(), syn.Offset)
	}
	if err == nil {
		return "invalid JSON"
	}
	return err.Error()
}

func jsonKind(b []byte) string {
	if len(b) == 0 {
		return "empty"
	}
	switch b[0] {
	case '{':
		return "an object"
	case '[':
		return "a list"
	case '"':
		return "a string"
	case 't', 'f':
		return "a boolean"
	case 'n':
		return "null"
	default:
		return "a number"
	}
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
