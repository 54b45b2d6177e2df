package dedup

import (
	"testing"

	"github.com/tranhoait123/anki-mcq-export/internal/question"
)

func TestQuestionNumber(t *testing.T) {
	cases := map[string]string{
		"Câu 12: Bệnh nhân nam":    "12",
		"CÂU SỐ 7. Trẻ sơ sinh":    "7",
		"Question 3 - which drug":  "3",
		"15. Thuốc điều trị":       "15",
		"04) Chẩn đoán":            "4",
		"Bệnh nhân 45 tuổi":        "",
		"Liều 5 mg/kg cho trẻ nhỏ": "",
	}
	for in, want := range cases {
		if got := QuestionNumber(in); got != want {
			t.Fatalf("QuestionNumber(%q)=%q want %q", in, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("  Câu 1:   Thuốc NÀO sau đây?!\n(chọn 1)")
	want := "câu 1 thuốc nào sau đây chọn 1"
	if got != want {
		t.Fatalf("Normalize=%q want %q", got, want)
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("Thuốc nào sau đây?", "thuốc nào sau đây"); s != 1 {
		t.Fatalf("equal after normalization should be 1, got %v", s)
	}
	if s := Similarity("Thuốc nào gây hạ đường huyết", "Thuốc nào gây hạ đường huyết ở trẻ em"); s != 0.95 {
		t.Fatalf("containment should be 0.95, got %v", s)
	}
	// words > 2 runes: {thuốc, điều, trị, tăng, huyết, áp} style overlap
	a := "Thuốc điều trị tăng huyết phổ biến nhất"
	b := "Thuốc điều trị tăng huyết hiếm gặp nhất"
	if s := Similarity(a, b); s < 0.5 || s >= 1 {
		t.Fatalf("partial overlap out of range: %v", s)
	}
	if s := Similarity("", "abc"); s != 0 {
		t.Fatalf("empty should be 0, got %v", s)
	}
}

func TestFilter_DropsNumberAndSimilarMatches(t *testing.T) {
	existing := []question.Question{
		{Question: "Câu 1: Triệu chứng kinh điển của sốt xuất huyết Dengue là gì?"},
		{Question: "Câu 2: Kháng sinh lựa chọn đầu tay cho viêm phổi cộng đồng ở trẻ em"},
	}
	incoming := []question.Question{
		{Question: "Câu 1. Biểu hiện khác hoàn toàn"},
		{Question: "Kháng sinh lựa chọn đầu tay cho viêm phổi cộng đồng ở trẻ em"},
		{Question: "Câu 3: Liều adrenaline trong sốc phản vệ"},
	}
	kept, dups := Checker{}.Filter(existing, incoming)
	if len(kept) != 1 || kept[0].Question != incoming[2].Question {
		t.Fatalf("unexpected kept %+v", kept)
	}
	if len(dups) != 2 {
		t.Fatalf("want 2 duplicates, got %d", len(dups))
	}
	if dups[0].Reason != ReasonNumber || dups[0].Matched.Question != existing[0].Question {
		t.Fatalf("first duplicate should match by number: %+v", dups[0])
	}
	if dups[1].Reason != ReasonSimilar || dups[1].Similarity < DefaultThreshold {
		t.Fatalf("second duplicate should match by similarity: %+v", dups[1])
	}
}

func TestCheck_RespectsThreshold(t *testing.T) {
	existing := []question.Question{{Question: "alpha beta gamma delta"}}
	// overlap 2/4 = 0.5
	if _, ok := (Checker{}).Check("alpha beta epsilon zeta", existing); ok {
		t.Fatalf("0.5 should be below the default threshold")
	}
	if m, ok := (Checker{Threshold: 0.4}).Check("alpha beta epsilon zeta", existing); !ok || m.Index != 0 {
		t.Fatalf("0.5 should pass a 0.4 threshold")
	}
}
