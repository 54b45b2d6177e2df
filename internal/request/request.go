package request

import (
	"fmt"
	"strings"

	"github.com/tranhoait123/anki-mcq-export/internal/document"
)

// Format is the response format requested from the model.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Request is the argument set for one model call: the ordered parts and
// the expected response format.
type Request struct {
	Parts  []document.Part
	Format Format
}

// DefaultInstruction is the extraction persona and target schema sent ahead
// of every document set.
const DefaultInstruction = `Bạn là một Giáo sư Y khoa đầu ngành. Trích xuất tất cả các câu hỏi trắc nghiệm từ tài liệu này.
Nhiệm vụ: Phân tích sâu sắc, cung cấp biện luận lâm sàng, chẩn đoán phân biệt và trích dẫn nguồn y văn uy tín.
Giữ nguyên nội dung câu hỏi và các lựa chọn như trong tài liệu, không tự bịa thêm câu hỏi.

Chỉ trả về JSON hợp lệ, không kèm văn bản nào khác, theo định dạng:
{
  "questions": [
    {
      "question": "Câu hỏi",
      "options": ["A", "B", "C", "D"],
      "correctAnswer": "A",
      "explanation": {
        "core": "Giải thích tại sao đúng (bệnh học/lâm sàng).",
        "analysis": "Biện luận chẩn đoán phân biệt, tại sao các câu khác sai.",
        "evidence": "Nguồn y văn (Harrison, Nelson, Bộ Y tế...)",
        "warning": "Lưu ý/Bẫy lâm sàng thường gặp."
      },
      "difficulty": "Dễ/Trung bình/Khó",
      "depthAnalysis": "Nhớ/Hiểu/Vận dụng/Phân tích",
      "source": "Tên tài liệu"
    }
  ]
}`

// AnalysisInstruction asks for a count estimate instead of the questions.
const AnalysisInstruction = `Phân tích số câu hỏi trắc nghiệm trong tài liệu Y khoa.
Chỉ trả về JSON hợp lệ, không kèm văn bản nào khác, theo định dạng:
{
  "topic": "Chủ đề chính của tài liệu",
  "estimatedCount": 0,
  "questionRange": "Ví dụ: Câu 1 - Câu 120",
  "confidence": "Cao/Trung bình/Thấp"
}`

// AuditInstruction asks the model to explain a short extraction.
const AuditInstruction = `Bạn là Chuyên gia Kiểm toán Tài liệu AI.
Nhiệm vụ: Phân tích lý do tại sao quá trình trích xuất câu hỏi trắc nghiệm từ tài liệu (có thể là file scan, mờ) không đạt được số lượng mong muốn.
Kiểm tra các yếu tố:
- Lỗi OCR (chữ dính nhau, ký tự lạ).
- Bố cục phức tạp (chia 2 cột, bảng biểu).
- Ảnh mờ hoặc bị nghiêng.
- Các câu hỏi bị dính vào nhau.
- Tài liệu bị thiếu trang hoặc ngắt quãng.

Chỉ trả về JSON hợp lệ, không kèm văn bản nào khác, theo định dạng:
{
  "status": "warning/success",
  "missingPercentage": 0,
  "reasons": ["Lý do"],
  "problematicSections": ["Chương hoặc trang"],
  "advice": "Lời khuyên"
}`

const (
	analysisPrompt = "Quét tài liệu và ước tính tổng số câu hỏi MCQ có mặt."
	auditPrompt    = "Quá trình trích xuất chỉ lấy được %d câu hỏi. Hãy so sánh với toàn bộ tài liệu và báo cáo tại sao có sự thiếu hụt này. Chỉ ra chính xác chương hoặc trang gặp khó khăn nếu có thể."
)

// Directive steers one call of a multi-call extraction. The zero value adds
// nothing to the request.
type Directive struct {
	// Batch is the 1-based call number; 0 disables the directive.
	Batch int
	// Size is the number of questions requested per call.
	Size int
	// After is the stem of the last question already extracted.
	After string
}

// snippetRunes bounds how much of the previous stem is quoted back.
const snippetRunes = 80

// Builder assembles extraction requests. It performs no I/O.
type Builder struct {
	// Instruction replaces DefaultInstruction when non-empty.
	Instruction string
}

// Build returns the instruction part followed by parts in input order, with
// the response format set to JSON. Text parts are framed with their file
// name so the model can fill the source field.
func (b Builder) Build(parts []document.Part, d Directive) Request {
	instruction := strings.TrimSpace(b.Instruction)
	if instruction == "" {
		instruction = DefaultInstruction
	}
	return build(instruction, parts, d.text())
}

// Analysis asks for an estimate of the topic and question count of the
// documents. The extraction instruction is not used.
func (b Builder) Analysis(parts []document.Part) Request {
	return build(AnalysisInstruction, parts, analysisPrompt)
}

// Audit asks why an extraction that produced count questions came up short.
func (b Builder) Audit(parts []document.Part, count int) Request {
	return build(AuditInstruction, parts, fmt.Sprintf(auditPrompt, count))
}

func build(instruction string, parts []document.Part, trailer string) Request {
	out := make([]document.Part, 0, len(parts)+2)
	out = append(out, document.Text("instruction", instruction))
	for _, p := range parts {
		if p.Kind == document.KindText {
			p.Text = frame(p.Name, p.Text)
		}
		out = append(out, p)
	}
	if trailer != "" {
		out = append(out, document.Text("directive", trailer))
	}
	return Request{Parts: out, Format: FormatJSON}
}

func frame(name, text string) string {
	if strings.TrimSpace(name) == "" {
		return text
	}
	return "FILE: " + name + "\n" + text + "\n"
}

func (d Directive) text() string {
	if d.Batch <= 0 {
		return ""
	}
	size := d.Size
	if size <= 0 {
		size = 50
	}
	after := strings.TrimSpace(d.After)
	if d.Batch == 1 || after == "" {
		return fmt.Sprintf("Trích xuất %d câu hỏi ĐẦU TIÊN trong tài liệu, theo đúng thứ tự xuất hiện.", size)
	}
	return fmt.Sprintf("Tiếp tục trích xuất tối đa %d câu hỏi TIẾP THEO, bắt đầu ngay SAU câu: %q. Không lặp lại các câu đã trích xuất. Nếu không còn câu hỏi nào, trả về {\"questions\": []}.", size, Snippet(after))
}

// Snippet shortens a question stem to the prefix quoted in continuation
// directives.
func Snippet(stem string) string {
	stem = strings.Join(strings.Fields(stem), " ")
	r := []rune(stem)
	if len(r) <= snippetRunes {
		return stem
	}
	return string(r[:snippetRunes]) + "…"
}
