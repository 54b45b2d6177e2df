package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// chatRequest accepts both plain string content and multi-part content.
type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

const cannedQuestions = `{"questions":[{"question":"Câu 1: Trẻ 3 tuổi sốt cao, phát ban, viêm kết mạc. Chẩn đoán phù hợp nhất?","options":["Sởi","Rubella","Thủy đậu","Tay chân miệng"],"correctAnswer":"A","explanation":{"core":"Sốt, ho, chảy mũi, viêm kết mạc rồi phát ban là bệnh cảnh sởi.","analysis":"Rubella sốt nhẹ, thủy đậu có bóng nước.","evidence":"Nelson Textbook of Pediatrics","warning":""},"difficulty":"Dễ","depthAnalysis":"Hiểu","source":"%s"}]}`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		texts, files := 0, 0
		source := "stub.txt"
		for _, m := range req.Messages {
			for _, p := range parts(m.Content) {
				switch {
				case p.ImageURL != nil:
					files++
				case strings.HasPrefix(p.Text, "FILE: "):
					files++
					texts++
					source = strings.TrimSpace(strings.SplitN(strings.TrimPrefix(p.Text, "FILE: "), "\n", 2)[0])
				default:
					texts++
				}
			}
		}
		log.Info().Str("model", req.Model).Int("text_parts", texts).Int("files", files).Msg("chat completion")

		quoted, _ := json.Marshal(source)
		content := strings.Replace(cannedQuestions, `"%s"`, string(quoted), 1)
		switch {
		case anyTextHasPrefix(req, "Quét tài liệu"):
			content = cannedAnalysis
		case anyTextHasPrefix(req, "Quá trình trích xuất chỉ lấy được"):
			content = cannedAudit
		case anyTextHasPrefix(req, "Tiếp tục trích xuất"):
			// continuation calls after the first batch get an empty list
			content = `{"questions":[]}`
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})

	log.Info().Str("addr", addr).Str("model", model).Msg("openai-stub listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}

func parts(raw json.RawMessage) []contentPart {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []contentPart{{Type: "text", Text: s}}
	}
	var ps []contentPart
	_ = json.Unmarshal(raw, &ps)
	return ps
}

func anyTextHasPrefix(req chatRequest, prefix string) bool {
	for _, m := range req.Messages {
		for _, p := range parts(m.Content) {
			if strings.HasPrefix(p.Text, prefix) {
				return true
			}
		}
	}
	return false
}

const (
	cannedAnalysis = `{"topic":"Nhi khoa","estimatedCount":1,"questionRange":"Câu 1","confidence":"Cao"}`
	cannedAudit    = `{"status":"success","missingPercentage":0,"reasons":[],"problematicSections":[],"advice":"Không thiếu câu nào."}`
)
