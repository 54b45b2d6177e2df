package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/tranhoait123/anki-mcq-export/internal/app"
	"github.com/tranhoait123/anki-mcq-export/internal/pipeline"
	"github.com/tranhoait123/anki-mcq-export/internal/response"
)

// Smoke test: run replays a saved response and writes the CSV export.
func TestRun_Replay_WritesCSV(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "doc.txt")
	resp := filepath.Join(dir, "resp.json")
	if err := os.WriteFile(in, []byte("Câu 1: Q1"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if err := os.WriteFile(resp, []byte(`[{"question":"Q1","options":["A1","B1"],"correctAnswer":"A"}]`), 0o644); err != nil {
		t.Fatalf("write response: %v", err)
	}
	cfg := app.Config{Inputs: []string{in}, OutDir: dir, ResponsePath: resp}
	if err := run(context.Background(), cfg); err != nil {
		t.Fatalf("run error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "ankigen_pro_1cau.csv"))
	if err != nil || len(b) == 0 {
		t.Fatalf("expected output file, err=%v", err)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("%w (1 of 1 failed)", pipeline.ErrNoParts), 2},
		{app.ErrNoQuestions, 2},
		{fmt.Errorf("batch 1: %w", &response.ShapeError{Kind: response.ErrShape, Detail: "x"}), 1},
		{errors.New("boom"), 1},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Fatalf("exitCode(%v)=%d want %d", c.err, got, c.want)
		}
	}
}
