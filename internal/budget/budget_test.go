package budget

import "testing"

func TestEstimateTokensFromChars(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{400, 100},
	}
	for _, c := range cases {
		if got := EstimateTokensFromChars(c.in); got != c.want {
			t.Fatalf("EstimateTokensFromChars(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestEstimateParts(t *testing.T) {
	parts := []Part{
		{Text: "abcdefgh"}, // 2
		{Binary: true, MediaType: "image/png", Size: 10},                     // 258
		{Binary: true, MediaType: "application/pdf", Size: PDFBytesPerPage + 1}, // 2 pages
		{Binary: true, MediaType: "image/png", Size: 0},                      // 0
	}
	want := 2 + ImageTokens + 2*ImageTokens
	if got := EstimateParts(parts); got != want {
		t.Fatalf("EstimateParts = %d, want %d", got, want)
	}
}

func TestModelContextTokens(t *testing.T) {
	if ModelContextTokens("") != 8192 {
		t.Fatal("empty model should default to 8192")
	}
	if ModelContextTokens("models/Gemini-2.5-Flash") != 1_048_576 {
		t.Fatal("models/ prefix and case should be ignored")
	}
	if ModelContextTokens("gemini-3-flash") != 1_048_576 {
		t.Fatal("unknown gemini models should assume 1M context")
	}
	if ModelContextTokens("mystery") != 8192 {
		t.Fatal("unknown model should default to 8192")
	}
}

func TestRemainingAndFits(t *testing.T) {
	model := "gpt-4o"
	max := ModelContextTokens(model)
	if rem := RemainingContext(model, 2000, max/2); rem <= 0 {
		t.Fatalf("remaining should be positive, got %d", rem)
	}
	if !FitsInContext(model, 2000, max/2) {
		t.Fatal("half the window should fit")
	}
	if rem := RemainingContext(model, 1, max); rem != 0 {
		t.Fatalf("remaining should clamp at 0, got %d", rem)
	}
	if FitsInContext(model, 0, max-HeadroomTokens(model)) {
		t.Fatal("prompt filling the headroom should not fit")
	}
}

func TestHeadroomTokens(t *testing.T) {
	if HeadroomTokens("") != 512 {
		t.Fatalf("default model headroom should floor to 512")
	}
	if HeadroomTokens("gpt-4o") != 6400 {
		t.Fatalf("gpt-4o headroom should be 5%%, got %d", HeadroomTokens("gpt-4o"))
	}
}
