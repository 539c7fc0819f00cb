package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/quilltool/quill/internal/conversation"
)

// geminiTransport is the wire-level call, split out so failover logic is
// testable without the network.
type geminiTransport interface {
	generate(ctx context.Context, key, model string, msgs []Message) (*Response, error)
}

// Gemini is the cloud backend. It owns an ordered credential pool and a
// cursor into it; the cursor only moves on rate-limit failover.
type Gemini struct {
	model     string
	keys      []string
	idx       int
	timeout   time.Duration
	log       *zap.Logger
	transport geminiTransport
}

func NewGemini(model string, cfg Config) (*Gemini, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, errors.New("no Gemini API keys configured: set GEMINI_API_KEY (comma-separated for multiple)")
	}
	for i, key := range cfg.APIKeys {
		if err := CheckKeyFormat(key); err != nil {
			cfg.Log.Warn("API key looks malformed, attempting anyway",
				zap.Int("key_index", i), zap.Error(err))
		}
	}
	return &Gemini{
		model:     model,
		keys:      cfg.APIKeys,
		idx:       rand.IntN(len(cfg.APIKeys)),
		timeout:   cfg.Timeout,
		log:       cfg.Log,
		transport: &genaiTransport{},
	}, nil
}

func (g *Gemini) Backend() string { return "gemini" }
func (g *Gemini) Model() string   { return g.model }

// Send dispatches the request with the current credential. On a rate
// limit with at least two keys it advances the cursor and retries exactly
// once; a second rate limit is final. Auth failures never retry.
func (g *Gemini) Send(ctx context.Context, msgs []Message) (*Response, error) {
	resp, err := g.attempt(ctx, msgs)
	if err == nil {
		return resp, nil
	}

	cerr := classify(g.Backend(), err)
	if cerr.Kind == KindRateLimited && len(g.keys) >= 2 {
		g.idx = (g.idx + 1) % len(g.keys)
		g.log.Warn("credential rate limited, rotating to next key",
			zap.Int("key_index", g.idx))
		resp, err = g.attempt(ctx, msgs)
		if err == nil {
			return resp, nil
		}
		cerr = classify(g.Backend(), err)
		if cerr.Kind == KindRateLimited {
			cerr.Err = fmt.Errorf("all credentials exhausted: %w", cerr.Err)
		}
	}
	return nil, cerr
}

func (g *Gemini) attempt(ctx context.Context, msgs []Message) (*Response, error) {
	g.log.Debug("sending request",
		zap.String("model", g.model),
		zap.Int("messages", len(msgs)),
		zap.Int("key_index", g.idx))

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.transport.generate(ctx, g.keys[g.idx], g.model, msgs)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, &Error{
			Backend: g.Backend(),
			Kind:    KindEmptyResponse,
			Err:     errors.New("no content was generated"),
		}
	}
	return resp, nil
}

type genaiTransport struct{}

func (t *genaiTransport) generate(ctx context.Context, key, model string, msgs []Message) (*Response, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, model, toGenAIContents(msgs), nil)
	if err != nil {
		return nil, err
	}

	out := &Response{Content: resp.Text()}
	if resp.UsageMetadata != nil {
		out.Usage = conversation.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func toGenAIContents(msgs []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		parts := make([]*genai.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			if p.IsBinary() {
				parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIME))
			} else {
				parts = append(parts, genai.NewPartFromText(p.Text))
			}
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}
