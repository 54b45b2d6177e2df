package request

import (
	"strings"
	"testing"

	"github.com/tranhoait123/anki-mcq-export/internal/document"
)

func TestBuild_PrependsInstructionAndKeepsOrder(t *testing.T) {
	parts := []document.Part{
		{Kind: document.KindBinary, Name: "p1.png", MediaType: "image/png", Data: []byte{1}},
		document.Text("doc.txt", "Câu 1"),
	}
	req := Builder{}.Build(parts, Directive{})
	if req.Format != FormatJSON {
		t.Fatalf("format should be JSON")
	}
	if len(req.Parts) != 3 {
		t.Fatalf("want 3 parts, got %d", len(req.Parts))
	}
	if req.Parts[0].Kind != document.KindText || req.Parts[0].Text != DefaultInstruction {
		t.Fatalf("first part must be the instruction")
	}
	if req.Parts[1].Name != "p1.png" || req.Parts[1].Kind != document.KindBinary {
		t.Fatalf("binary part moved or changed: %+v", req.Parts[1])
	}
	if req.Parts[2].Text != "FILE: doc.txt\nCâu 1\n" {
		t.Fatalf("text part not framed: %q", req.Parts[2].Text)
	}
	if parts[1].Text != "Câu 1" {
		t.Fatalf("input parts must not be mutated")
	}
}

func TestBuild_CustomInstruction(t *testing.T) {
	req := Builder{Instruction: "  extract everything  "}.Build(nil, Directive{})
	if len(req.Parts) != 1 || req.Parts[0].Text != "extract everything" {
		t.Fatalf("unexpected parts %+v", req.Parts)
	}
}

func TestBuild_Directives(t *testing.T) {
	first := Builder{}.Build(nil, Directive{Batch: 1, Size: 20})
	if len(first.Parts) != 2 || !strings.Contains(first.Parts[1].Text, "20 câu hỏi ĐẦU TIÊN") {
		t.Fatalf("first batch directive missing: %+v", first.Parts)
	}
	next := Builder{}.Build(nil, Directive{Batch: 2, Size: 20, After: "Bệnh nhân nam 60 tuổi"})
	if !strings.Contains(next.Parts[1].Text, `SAU câu: "Bệnh nhân nam 60 tuổi"`) {
		t.Fatalf("continuation directive missing snippet: %q", next.Parts[1].Text)
	}
}

func TestSnippet_TruncatesLongStems(t *testing.T) {
	long := strings.Repeat("ă", 100)
	got := Snippet(long)
	if len([]rune(got)) != snippetRunes+1 || !strings.HasSuffix(got, "…") {
		t.Fatalf("unexpected snippet %q", got)
	}
	if Snippet("  a \n b ") != "a b" {
		t.Fatalf("whitespace should collapse")
	}
}

func TestAnalysisAndAudit_UseTheirOwnInstructions(t *testing.T) {
	parts := []document.Part{document.Text("de.txt", "Câu 1")}
	b := Builder{Instruction: "custom extraction"}

	analysis := b.Analysis(parts)
	if len(analysis.Parts) != 3 || analysis.Parts[0].Text != AnalysisInstruction || analysis.Format != FormatJSON {
		t.Fatalf("unexpected analysis request %+v", analysis)
	}
	if analysis.Parts[1].Text != "FILE: de.txt\nCâu 1\n" {
		t.Fatalf("document part not framed: %q", analysis.Parts[1].Text)
	}

	audit := b.Audit(parts, 42)
	if audit.Parts[0].Text != AuditInstruction {
		t.Fatalf("audit must not use the extraction instruction")
	}
	if last := audit.Parts[len(audit.Parts)-1].Text; !strings.Contains(last, "42 câu hỏi") {
		t.Fatalf("audit prompt should carry the extracted count: %q", last)
	}
}
