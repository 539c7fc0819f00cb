// Package pipeline orchestrates one request: resolve the conversation,
// assemble content, call the backend, append the exchange, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/quilltool/quill/internal/content"
	"github.com/quilltool/quill/internal/conversation"
	"github.com/quilltool/quill/internal/logging"
	"github.com/quilltool/quill/internal/provider"
	"github.com/quilltool/quill/internal/usage"
)

// Pipeline wires the collaborators for a single-shot run.
type Pipeline struct {
	Store         *conversation.Store
	Builder       *content.Builder
	Client        provider.Client
	Ledger        *usage.Ledger // optional
	Log           *zap.Logger
	LogDir        string // when set, tee logs into <LogDir>/<conversation id>.log
	ContextWindow int
	NoSave        bool
}

// Request is one invocation's worth of input.
type Request struct {
	Options    content.Options
	Resume     string // conversation id or unique prefix
	ResumeLast bool
}

// Result carries the response and what happened around persistence. A
// save failure after a successful model call does not void the response;
// it surfaces in SaveErr.
type Result struct {
	Response     string
	Conversation *conversation.Conversation
	SaveErr      error
}

// Run executes the request end to end.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	conv, err := p.resolveConversation(req)
	if err != nil {
		return nil, err
	}

	// The conversation id exists from here on, so the per-conversation
	// file sink can attach now.
	log := p.Log
	if p.LogDir != "" {
		log = logging.WithConversationFile(p.Log, p.LogDir, conv.ID)
		p.Builder.Log = log
	}
	log.Debug("handling request",
		zap.String("conversation_id", conv.ID),
		zap.String("backend", p.Client.Backend()),
		zap.String("model", p.Client.Model()))

	historyText := ""
	if len(conv.Messages) > 0 {
		historyText = conv.Transcript()
	}
	sources, err := p.Builder.Build(ctx, req.Options, historyText)
	if err != nil {
		return nil, err
	}

	if dropped := conv.Truncate(p.ContextWindow); dropped > 0 {
		log.Info("truncated conversation history",
			zap.String("conversation_id", conv.ID),
			zap.Int("dropped", dropped))
	}

	parts, err := content.Parts(sources)
	if err != nil {
		return nil, err
	}

	msgs := historyMessages(conv)
	msgs = append(msgs, provider.Message{Role: provider.RoleUser, Parts: parts})

	resp, err := p.Client.Send(ctx, msgs)
	if err != nil {
		return nil, err
	}

	conv.Append(conversation.Message{
		Role:      conversation.RoleUser,
		Content:   content.JoinText(parts),
		Resources: Resources(sources),
	})
	conv.Append(conversation.Message{
		Role:    conversation.RoleAssistant,
		Content: resp.Content,
		Usage:   resp.Usage,
	})

	result := &Result{Response: resp.Content, Conversation: conv}
	if !p.NoSave {
		result.SaveErr = p.Store.Save(conv)
	}

	if p.Ledger != nil {
		if err := p.Ledger.Record(ctx, conv.ID, p.Client.Backend(), p.Client.Model(), resp.Usage); err != nil {
			log.Warn("usage ledger write failed", zap.Error(err))
		}
	}
	return result, nil
}

func (p *Pipeline) resolveConversation(req Request) (*conversation.Conversation, error) {
	switch {
	case req.Resume != "":
		c, err := p.Store.Load(req.Resume)
		if err != nil {
			return nil, fmt.Errorf("resuming conversation: %w", err)
		}
		return c, nil
	case req.ResumeLast:
		c, err := p.Store.Latest()
		if errors.Is(err, conversation.ErrNotFound) {
			p.Log.Debug("no conversation to resume, starting fresh")
			return conversation.New(p.Client.Model()), nil
		}
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return conversation.New(p.Client.Model()), nil
	}
}

func historyMessages(c *conversation.Conversation) []provider.Message {
	msgs := make([]provider.Message, 0, len(c.Messages)+1)
	for _, m := range c.Messages {
		role := provider.RoleUser
		if m.Role == conversation.RoleAssistant {
			role = provider.RoleAssistant
		}
		msgs = append(msgs, provider.TextMessage(role, m.Content))
	}
	return msgs
}

// Resources derives the audit records persisted with the user message.
// Prompt text and history carry no resource entry; payload bytes are
// never included.
func Resources(sources []content.Source) []conversation.ResourceInfo {
	var out []conversation.ResourceInfo
	for _, s := range sources {
		switch s.Kind {
		case content.KindRole:
			t := conversation.ResourceRole
			if s.IsTask {
				t = conversation.ResourceTask
			}
			out = append(out, conversation.ResourceInfo{Type: t, Path: s.Path})
		case content.KindAudio:
			out = append(out, conversation.ResourceInfo{Type: conversation.ResourceAudio, Path: s.Path})
		case content.KindClipboardText:
			out = append(out, conversation.ResourceInfo{Type: conversation.ResourceClipboardText})
		case content.KindClipboardImage:
			out = append(out, conversation.ResourceInfo{Type: conversation.ResourceClipboardImage})
		case content.KindStdin:
			out = append(out, conversation.ResourceInfo{Type: conversation.ResourceStdin})
		case content.KindTextFile:
			out = append(out, conversation.ResourceInfo{Type: conversation.ResourceTextFile, Path: s.Path})
		case content.KindMediaFile:
			t := conversation.ResourceImage
			if mime, ok := content.MediaMIME(s.Path); ok && content.IsAudioMIME(mime) {
				t = conversation.ResourceAudio
			}
			out = append(out, conversation.ResourceInfo{Type: t, Path: s.Path})
		}
	}
	return out
}
