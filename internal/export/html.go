package export

import (
	"regexp"
	"strings"

	"github.com/tranhoait123/anki-mcq-export/internal/question"
)

// Placeholder stands in for an empty explanation section.
const Placeholder = "N/A"

// HTMLOptions tunes the explanation fragment.
type HTMLOptions struct {
	// RichText turns **bold**, *italic* and newlines into HTML.
	RichText bool
	// Footer appends the difficulty and depth labels.
	Footer bool
}

// ExplanationHTML renders the explanation of q as a single-line HTML
// fragment. Core, analysis and evidence are always present, with
// Placeholder when empty. The warning section is emitted only when the
// warning is non-empty. Field text is inserted as-is.
func ExplanationHTML(q question.Question, opts HTMLOptions) string {
	exp := q.Explanation
	var b strings.Builder
	b.WriteString("<div class='anki-card'>")
	section(&b, "core-section", "", "Đáp án cốt lõi:", field(exp.Core, opts))
	b.WriteString("<hr/>")
	section(&b, "analysis-section", "", "Biện luận:", field(exp.Analysis, opts))
	section(&b, "evidence-section", "", "Bằng chứng:", field(exp.Evidence, opts))
	if strings.TrimSpace(exp.Warning) != "" {
		section(&b, "warning-section", "color: orange;", "⚠️ Lưu ý:", format(exp.Warning, opts))
	}
	if len(q.Options) > OptionColumns {
		b.WriteString("<div class='extra-options'><b>Lựa chọn khác:</b><ul>")
		for i := OptionColumns; i < len(q.Options); i++ {
			b.WriteString("<li>")
			b.WriteString(question.Letter(i))
			b.WriteString(". ")
			b.WriteString(format(q.Options[i], opts))
			b.WriteString("</li>")
		}
		b.WriteString("</ul></div>")
	}
	if opts.Footer && (q.Difficulty != "" || q.DepthAnalysis != "") {
		b.WriteString("<div class='meta-footer'>")
		if q.Difficulty != "" {
			b.WriteString("<span>📊 Độ khó: <b>")
			b.WriteString(q.Difficulty)
			b.WriteString("</b></span>")
		}
		if q.DepthAnalysis != "" {
			b.WriteString("<span>🧠 Tư duy: <b>")
			b.WriteString(q.DepthAnalysis)
			b.WriteString("</b></span>")
		}
		b.WriteString("</div>")
	}
	b.WriteString("</div>")
	return b.String()
}

func section(b *strings.Builder, class, style, title, body string) {
	b.WriteString("<div class='")
	b.WriteString(class)
	b.WriteString("'")
	if style != "" {
		b.WriteString(" style='")
		b.WriteString(style)
		b.WriteString("'")
	}
	b.WriteString("><b>")
	b.WriteString(title)
	b.WriteString("</b> ")
	b.WriteString(body)
	b.WriteString("</div>")
}

func field(s string, opts HTMLOptions) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return format(s, opts)
}

func format(s string, opts HTMLOptions) string {
	if !opts.RichText {
		return s
	}
	return RichText(s)
}

var (
	boldRe   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe = regexp.MustCompile(`\*(.*?)\*`)
)

// RichText converts the lightweight markup models tend to emit into HTML:
// **b** to <b>, *i* to <i> and newlines to <br>.
func RichText(s string) string {
	s = boldRe.ReplaceAllString(s, "<b>$1</b>")
	s = italicRe.ReplaceAllString(s, "<i>$1</i>")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}
