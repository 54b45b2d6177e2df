package app

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tranhoait123/anki-mcq-export/internal/document"
)

func TestBuildManifestEntries_DigestsAndErrors(t *testing.T) {
	uploads := []document.Upload{
		{Name: "a.txt", Data: []byte("hello")},
		{Name: "b.docx", Data: []byte("PK\x03\x04broken")},
	}
	failures := []document.FileError{{Index: 1, Name: "b.docx", Err: errors.New("not a DOCX archive")}}
	unreadable := []document.FileError{{Name: "gone.pdf", MediaType: "application/pdf", Err: errors.New("no such file")}}
	entries := buildManifestEntries(uploads, failures, unreadable)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries; got %d", len(entries))
	}
	// sha256("hello")
	if entries[0].SHA256 != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" || entries[0].Bytes != 5 {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
	if entries[0].MediaType != "text/plain" || entries[0].Error != "" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
	if entries[1].Error != "not a DOCX archive" {
		t.Fatalf("failure not recorded: %+v", entries[1])
	}
	if entries[2].Name != "gone.pdf" || entries[2].Error != "no such file" || entries[2].SHA256 != "" {
		t.Fatalf("unreadable input not recorded: %+v", entries[2])
	}
}

func TestBuildManifestEntries_SameNameDifferentDirs(t *testing.T) {
	// a/q.txt and b/q.txt both arrive as q.txt; only the second fails.
	uploads := []document.Upload{
		{Name: "q.txt", Data: []byte("Câu 1: ổn")},
		{Name: "q.txt", Data: []byte{0xC3, 0x28}},
	}
	batch := document.Normalizer{}.NormalizeAll(uploads)
	if len(batch.Failures) != 1 {
		t.Fatalf("expected one decode failure; got %+v", batch.Failures)
	}
	entries := buildManifestEntries(uploads, batch.Failures, nil)
	if entries[0].Error != "" {
		t.Fatalf("readable file blamed for the other's failure: %+v", entries[0])
	}
	if entries[1].Error == "" {
		t.Fatalf("failure not attached to the broken file: %+v", entries[1])
	}
}

func TestMarshalManifestJSON(t *testing.T) {
	meta := manifestMeta{
		Model:       "gemini-2.5-flash",
		LLMBaseURL:  "http://localhost:8081/v1",
		RunID:       "run-1",
		Questions:   2,
		GeneratedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	b, err := marshalManifestJSON(meta, []manifestEntry{{Name: "a.txt", SHA256: "abcd", Bytes: 4}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Meta  map[string]any   `json:"meta"`
		Files []map[string]any `json:"files"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Meta["run_id"] != "run-1" || len(decoded.Files) != 1 {
		t.Fatalf("unexpected manifest %s", b)
	}
	if strings.Contains(string(b), "key") {
		t.Fatalf("manifest must not carry any key field: %s", b)
	}
}

func TestDeriveManifestSidecarPath(t *testing.T) {
	if got := deriveManifestSidecarPath("out/nhi_12cau.csv"); got != "out/nhi_12cau.manifest.json" {
		t.Fatalf("got %q", got)
	}
}
