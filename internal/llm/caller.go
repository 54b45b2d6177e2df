package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/tranhoait123/anki-mcq-export/internal/document"
	"github.com/tranhoait123/anki-mcq-export/internal/request"
)

var (
	// ErrNotConfigured is returned when a caller has no client or model.
	ErrNotConfigured = errors.New("llm caller not configured")
	// ErrNoChoices is returned when the model answers without any choice.
	ErrNoChoices = errors.New("model returned no choices")
)

// Caller sends one extraction request and returns the model's raw text.
type Caller interface {
	Call(ctx context.Context, req request.Request) (string, error)
}

// CallerFunc adapts a plain function to Caller.
type CallerFunc func(ctx context.Context, req request.Request) (string, error)

func (f CallerFunc) Call(ctx context.Context, req request.Request) (string, error) {
	return f(ctx, req)
}

// ChatCaller performs the call through a chat-completion Client. It makes
// exactly one attempt.
type ChatCaller struct {
	Client      Client
	Model       string
	Temperature float32
	MaxTokens   int
}

func (c *ChatCaller) Call(ctx context.Context, req request.Request) (string, error) {
	if c == nil || c.Client == nil || strings.TrimSpace(c.Model) == "" {
		return "", ErrNotConfigured
	}
	chat := ChatRequest(c.Model, req)
	chat.Temperature = c.Temperature
	chat.MaxTokens = c.MaxTokens

	log.Debug().Str("model", c.Model).Int("parts", len(req.Parts)).Msg("calling model")
	resp, err := c.Client.CreateChatCompletion(ctx, chat)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	if resp.Usage.TotalTokens > 0 {
		log.Debug().Int("prompt_tokens", resp.Usage.PromptTokens).Int("completion_tokens", resp.Usage.CompletionTokens).Msg("model usage")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatRequest maps an extraction request onto a single multi-part user
// message. Binary parts travel as base64 data URIs.
func ChatRequest(model string, req request.Request) openai.ChatCompletionRequest {
	content := make([]openai.ChatMessagePart, 0, len(req.Parts))
	for _, p := range req.Parts {
		switch p.Kind {
		case document.KindBinary:
			content = append(content, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    DataURI(p.MediaType, p.Data),
					Detail: openai.ImageURLDetailHigh,
				},
			})
		default:
			content = append(content, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
	}
	chat := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: content},
		},
		N: 1,
	}
	if req.Format == request.FormatJSON {
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return chat
}

// DataURI encodes data as a data: URI with the given media type.
func DataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
