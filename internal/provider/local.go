package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/quilltool/quill/internal/content"
	"github.com/quilltool/quill/internal/conversation"
)

// Local talks to an Ollama server through its OpenAI-compatible endpoint.
// No credential pool: a local server has nothing to fail over to.
type Local struct {
	model   string
	api     *openai.Client
	timeout time.Duration
	log     *zap.Logger
}

func NewLocal(model string, cfg Config) *Local {
	base := cfg.OllamaBaseURL
	if base == "" {
		base = "http://localhost:11434"
	}
	conf := openai.DefaultConfig("ollama")
	conf.BaseURL = NormalizeBaseURL(base)
	return &Local{
		model:   model,
		api:     openai.NewClientWithConfig(conf),
		timeout: cfg.Timeout,
		log:     cfg.Log,
	}
}

func (l *Local) Backend() string { return "ollama" }
func (l *Local) Model() string   { return l.model }

// NormalizeBaseURL appends the /v1 path segment expected by Ollama's
// OpenAI compatibility layer if the configured URL lacks it.
func NormalizeBaseURL(base string) string {
	trimmed := strings.TrimRight(base, "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return trimmed
	}
	return trimmed + "/v1"
}

func (l *Local) Send(ctx context.Context, msgs []Message) (*Response, error) {
	l.log.Debug("sending request",
		zap.String("model", l.model),
		zap.Int("messages", len(msgs)))

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{Model: l.model}
	for _, m := range msgs {
		req.Messages = append(req.Messages, l.toChatMessage(m))
	}

	resp, err := l.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classify(l.Backend(), err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, &Error{
			Backend: l.Backend(),
			Kind:    KindEmptyResponse,
			Err:     errors.New("no content was generated"),
		}
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Usage: conversation.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (l *Local) toChatMessage(m Message) openai.ChatCompletionMessage {
	role := openai.ChatMessageRoleUser
	switch m.Role {
	case RoleAssistant:
		role = openai.ChatMessageRoleAssistant
	case RoleTool:
		// The compatibility layer rejects bare tool messages.
		l.log.Warn("remapping tool message to user role for local backend")
	}

	parts := MergeTextParts(m.Parts)

	if len(parts) == 1 && !parts[0].IsBinary() {
		return openai.ChatCompletionMessage{Role: role, Content: parts[0].Text}
	}

	var multi []openai.ChatMessagePart
	for _, p := range parts {
		if !p.IsBinary() {
			multi = append(multi, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
			continue
		}
		if !strings.HasPrefix(p.MIME, "image/") {
			l.log.Warn("dropping part the local backend cannot encode",
				zap.String("mime", p.MIME))
			continue
		}
		multi = append(multi, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", p.MIME, base64.StdEncoding.EncodeToString(p.Data)),
			},
		})
	}
	return openai.ChatCompletionMessage{Role: role, MultiContent: multi}
}

// MergeTextParts collapses a run of text-only parts into one part. Ollama
// mishandles messages that carry several text blocks; merging keeps the
// content identical while staying inside what it accepts. Messages with
// any binary part pass through untouched.
func MergeTextParts(parts []content.Part) []content.Part {
	if len(parts) <= 1 {
		return parts
	}
	for _, p := range parts {
		if p.IsBinary() {
			return parts
		}
	}
	texts := make([]string, len(parts))
	for i, p := range parts {
		texts[i] = p.Text
	}
	return []content.Part{{Text: strings.Join(texts, "\n\n")}}
}
