package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/tranhoait123/anki-mcq-export/internal/document"
	"github.com/tranhoait123/anki-mcq-export/internal/pipeline"
)

// manifestEntry is a compact record of one input file. Content is never
// stored, only its digest.
type manifestEntry struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	SHA256    string `json:"sha256,omitempty"`
	Bytes     int    `json:"bytes"`
	Error     string `json:"error,omitempty"`
}

// manifestMeta captures high-level run details that aid reproducibility.
// The API key is deliberately absent.
type manifestMeta struct {
	Version         string             `json:"version"`
	Mode            string             `json:"mode"`
	Model           string             `json:"model,omitempty"`
	LLMBaseURL      string             `json:"llm_base_url,omitempty"`
	RunID           string             `json:"run_id"`
	Questions       int                `json:"questions"`
	Duplicates      int                `json:"duplicates"`
	Batches         int                `json:"batches"`
	EstimatedTokens int                `json:"estimated_tokens"`
	Expected        int                `json:"expected,omitempty"`
	Analysis        *pipeline.Analysis `json:"analysis,omitempty"`
	Audit           *pipeline.Audit    `json:"audit,omitempty"`
	Outputs         []string           `json:"outputs"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// computeSHA256Hex returns a lowercase hex-encoded SHA-256 of data.
func computeSHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// buildManifestEntries records every upload in order, attaching the decode
// error of uploads that were skipped, followed by the inputs that could not
// be read at all. Decode failures are matched by upload index.
func buildManifestEntries(uploads []document.Upload, decodeFailures, readFailures []document.FileError) []manifestEntry {
	failed := make(map[int]string, len(decodeFailures))
	for _, f := range decodeFailures {
		failed[f.Index] = f.Err.Error()
	}
	out := make([]manifestEntry, 0, len(uploads)+len(readFailures))
	for i, u := range uploads {
		e := manifestEntry{
			Name:      u.Name,
			MediaType: document.ResolveMediaType(u.Name, u.MediaType, u.Data),
			Bytes:     len(u.Data),
			Error:     failed[i],
		}
		if len(u.Data) > 0 {
			e.SHA256 = computeSHA256Hex(u.Data)
		}
		out = append(out, e)
	}
	for _, f := range readFailures {
		out = append(out, manifestEntry{Name: f.Name, MediaType: f.MediaType, Error: f.Err.Error()})
	}
	return out
}

// marshalManifestJSON encodes a machine-readable sidecar manifest.
func marshalManifestJSON(meta manifestMeta, entries []manifestEntry) ([]byte, error) {
	payload := struct {
		Meta  manifestMeta    `json:"meta"`
		Files []manifestEntry `json:"files"`
	}{Meta: meta, Files: entries}
	return json.MarshalIndent(payload, "", "  ")
}

// deriveManifestSidecarPath returns the sidecar path next to the CSV export:
// nhi_12cau.csv -> nhi_12cau.manifest.json.
func deriveManifestSidecarPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, ".csv") + ".manifest.json"
}
