// Package provider routes requests to a model backend and owns credential
// failover. A backend is chosen once per run from a "backend::model" spec.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quilltool/quill/internal/content"
	"github.com/quilltool/quill/internal/conversation"
)

// Role labels a message in a backend request.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of backend input.
type Message struct {
	Role  Role
	Parts []content.Part
}

// TextMessage builds a single-part text message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []content.Part{{Text: text}}}
}

// Response is a successful backend reply.
type Response struct {
	Content string
	Usage   conversation.TokenUsage
}

// Client sends an ordered message list to one backend.
type Client interface {
	Send(ctx context.Context, msgs []Message) (*Response, error)
	Backend() string
	Model() string
}

// Config carries everything backends need from the environment.
type Config struct {
	APIKeys       []string
	OllamaBaseURL string
	Timeout       time.Duration
	Log           *zap.Logger
}

// DefaultTimeout bounds a single backend attempt.
const DefaultTimeout = 5 * time.Minute

// Route parses a "backend::model" spec and constructs the matching client.
// A spec without a separator is a Gemini model name.
func Route(spec string, cfg Config) (Client, error) {
	backend := "gemini"
	model := spec
	if idx := strings.Index(spec, "::"); idx >= 0 {
		backend = spec[:idx]
		model = spec[idx+2:]
	}
	if model == "" {
		return nil, fmt.Errorf("model spec %q has no model name", spec)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	switch backend {
	case "gemini":
		return NewGemini(model, cfg)
	case "ollama":
		return NewLocal(model, cfg), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (supported: gemini, ollama)", backend)
	}
}
