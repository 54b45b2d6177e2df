package budget

import (
	"math"
	"strings"
)

// Per-part token costs for non-text input. Gemini bills a fixed amount per
// image or PDF page; PDF page count is approximated from size.
const (
	ImageTokens       = 258
	PDFBytesPerPage   = 50_000
	DefaultOutputSize = 8192
)

// EstimateTokensFromChars converts a character count into an estimated token
// count (~4 chars per token, rounded up).
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(len(s))
}

// EstimateBinaryTokens estimates the cost of one binary part.
func EstimateBinaryTokens(mediaType string, size int) int {
	if size <= 0 {
		return 0
	}
	if strings.EqualFold(mediaType, "application/pdf") {
		pages := int(math.Ceil(float64(size) / PDFBytesPerPage))
		return pages * ImageTokens
	}
	return ImageTokens
}

// Part is the minimal view of a request part needed for estimation.
type Part struct {
	Text      string
	MediaType string
	Size      int
	Binary    bool
}

// EstimateParts sums the estimated tokens of all parts.
func EstimateParts(parts []Part) int {
	total := 0
	for _, p := range parts {
		if p.Binary {
			total += EstimateBinaryTokens(p.MediaType, p.Size)
			continue
		}
		total += EstimateTokens(p.Text)
	}
	return total
}

// ModelContextTokens returns an estimated maximum context window for a given
// model name. Unknown models fall back to a conservative default.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	name = strings.TrimPrefix(name, "models/")
	if name == "" {
		return 8192
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	switch {
	case strings.HasPrefix(name, "gemini-1.5-pro"):
		return 2_000_000
	case strings.HasPrefix(name, "gemini-"):
		return 1_048_576
	case strings.HasSuffix(name, "1m"):
		return 1_000_000
	case strings.HasSuffix(name, "200k"):
		return 200_000
	case strings.HasSuffix(name, "128k"), strings.Contains(name, "-mini"):
		return 128_000
	}
	return 8192
}

// RemainingContext computes the remaining input token budget given a model,
// a reservation for output generation, and the estimated prompt tokens. The
// result is never negative.
func RemainingContext(modelName string, reservedForOutput int, promptTokens int) int {
	maxCtx := ModelContextTokens(modelName)
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := maxCtx - reservedForOutput - promptTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FitsInContext reports whether the prompt fits the model's context window
// with the output reservation and headroom subtracted.
func FitsInContext(modelName string, reservedForOutput int, promptTokens int) bool {
	return RemainingContext(modelName, reservedForOutput+HeadroomTokens(modelName), promptTokens) > 0
}

// HeadroomTokens is the larger of 5% of the model context or 512 tokens.
func HeadroomTokens(modelName string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

var knownModelMax = map[string]int{
	"gemini-2.5-pro":        1_048_576,
	"gemini-2.5-flash":      1_048_576,
	"gemini-2.5-flash-lite": 1_048_576,
	"gemini-2.0-flash":      1_048_576,
	"gemini-1.5-flash":      1_048_576,
	"gemini-1.5-pro":        2_097_152,

	"gpt-4o":      128_000,
	"gpt-4o-mini": 128_000,
	"gpt-4.1":     1_047_576,

	"test-model": 8192,
}
