// Package conversation holds the persistent exchange record: an append-only
// message list saved as JSON with a human-readable markdown twin.
package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role labels a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ResourceType records what category of input contributed to a message.
// Unknown values on old records round-trip as-is.
type ResourceType string

const (
	ResourceImage          ResourceType = "image"
	ResourceAudio          ResourceType = "audio"
	ResourceTextFile       ResourceType = "text_file"
	ResourceClipboardText  ResourceType = "clipboard_text"
	ResourceClipboardImage ResourceType = "clipboard_image"
	ResourceStdin          ResourceType = "stdin"
	ResourceRole           ResourceType = "role"
	ResourceTask           ResourceType = "task"
)

// ResourceInfo is the audit trail for one non-prompt input. Payload bytes
// are never persisted, only type and origin.
type ResourceInfo struct {
	Type ResourceType `json:"type"`
	Path string       `json:"path,omitempty"`
}

// TokenUsage is the per-exchange token accounting reported by a backend.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

func (u TokenUsage) String() string {
	return fmt.Sprintf("%d prompt + %d completion = %d tokens",
		u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

// Message is one turn of the exchange.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Resources []ResourceInfo `json:"resources,omitempty"`
	Usage     TokenUsage     `json:"usage"`
}

// Conversation is the canonical persisted record.
type Conversation struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Per-message bookkeeping overhead counted toward the context budget.
const messageOverhead = 20

// RetentionFloor is the minimum number of recent messages truncation keeps.
const RetentionFloor = 20

// New creates an empty conversation for the given model.
func New(model string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        uuid.NewString(),
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message stamped now and bumps UpdatedAt. Timestamps never
// go backwards even if the clock does.
func (c *Conversation) Append(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.Timestamp.Before(c.UpdatedAt) {
		msg.Timestamp = c.UpdatedAt
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp
}

// ApproxSize estimates the context footprint in characters.
func (c *Conversation) ApproxSize() int {
	size := 0
	for _, m := range c.Messages {
		size += len(m.Content) + messageOverhead
	}
	return size
}

// Truncate drops the oldest messages until the approximate size fits
// maxChars, never keeping fewer than RetentionFloor messages. Returns how
// many were dropped.
func (c *Conversation) Truncate(maxChars int) int {
	dropped := 0
	for len(c.Messages) > RetentionFloor && c.ApproxSize() > maxChars {
		c.Messages = c.Messages[1:]
		dropped++
	}
	return dropped
}

// FirstUserContent returns the content of the earliest user message.
func (c *Conversation) FirstUserContent() string {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	return ""
}

// Preview is a one-line summary of the first user message, at most 50
// characters.
func (c *Conversation) Preview() string {
	text := strings.Join(strings.Fields(c.FirstUserContent()), " ")
	runes := []rune(text)
	if len(runes) <= 50 {
		return text
	}
	return string(runes[:47]) + "..."
}

// Transcript renders the prior turns as plain text, used to mark resumed
// history during content assembly.
func (c *Conversation) Transcript() string {
	var b strings.Builder
	for _, m := range c.Messages {
		label := "User"
		if m.Role == RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", label, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
