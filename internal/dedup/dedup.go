package dedup

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/tranhoait123/anki-mcq-export/internal/question"
)

// DefaultThreshold is the similarity at or above which two stems are
// considered the same question.
const DefaultThreshold = 0.70

// Reasons reported on a Match.
const (
	ReasonNumber  = "number"
	ReasonSimilar = "similar"
)

// Match describes the existing question a candidate collides with.
type Match struct {
	Index      int
	Reason     string
	Similarity float64
}

// Duplicate is a dropped candidate together with what it matched.
type Duplicate struct {
	Question question.Question `json:"question"`
	Matched  question.Question `json:"matched"`
	Reason   string            `json:"reason"`
	// Similarity is 1 for number matches.
	Similarity float64 `json:"similarity"`
}

// Checker detects questions that were already extracted by an earlier call.
type Checker struct {
	Threshold float64
}

func (c Checker) threshold() float64 {
	if c.Threshold <= 0 {
		return DefaultThreshold
	}
	return c.Threshold
}

var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)câu\s*(?:số\s*)?(\d+)`),
	regexp.MustCompile(`(?i)question\s*(\d+)`),
	regexp.MustCompile(`^(\d+)\s*[.:)\]]`),
}

// QuestionNumber returns the printed question number of a stem such as
// "Câu 12:" or "12.", or "" when none is present.
func QuestionNumber(stem string) string {
	s := strings.TrimSpace(norm.NFC.String(stem))
	for _, re := range numberPatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return strings.TrimLeft(m[1], "0")
		}
	}
	return ""
}

// Check compares candidate against existing and reports the first match.
// A shared question number is always a match; otherwise the normalized
// stems must reach the similarity threshold.
func (c Checker) Check(candidate string, existing []question.Question) (Match, bool) {
	num := QuestionNumber(candidate)
	stem := Normalize(candidate)
	best := Match{Index: -1}
	for i, q := range existing {
		if num != "" && QuestionNumber(q.Question) == num {
			return Match{Index: i, Reason: ReasonNumber, Similarity: 1}, true
		}
		sim := similarity(stem, Normalize(q.Question))
		if sim > best.Similarity {
			best = Match{Index: i, Reason: ReasonSimilar, Similarity: sim}
		}
	}
	if best.Index >= 0 && best.Similarity >= c.threshold() {
		return best, true
	}
	return Match{Index: -1}, false
}

// Filter splits incoming into questions not yet present in existing and the
// duplicates that were dropped. Kept questions are not compared with each
// other.
func (c Checker) Filter(existing, incoming []question.Question) ([]question.Question, []Duplicate) {
	kept := make([]question.Question, 0, len(incoming))
	var dups []Duplicate
	for _, q := range incoming {
		if m, ok := c.Check(q.Question, existing); ok {
			dups = append(dups, Duplicate{Question: q, Matched: existing[m.Index], Reason: m.Reason, Similarity: m.Similarity})
			continue
		}
		kept = append(kept, q)
	}
	return kept, dups
}

// Normalize lowercases s, strips punctuation and collapses whitespace.
func Normalize(s string) string {
	s = norm.NFC.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity scores two stems in [0,1] after normalization.
func Similarity(a, b string) float64 {
	return similarity(Normalize(a), Normalize(b))
}

func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.95
	}
	wa, wb := words(a), words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	common := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			common++
		}
	}
	return float64(common) / float64(max(len(wa), len(wb)))
}

func words(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		if utf8.RuneCountInString(w) > 2 {
			out[w] = struct{}{}
		}
	}
	return out
}
