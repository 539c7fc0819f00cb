package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"

	"github.com/quilltool/quill/internal/content"
)

type fakeCall struct {
	resp *Response
	err  error
}

type fakeTransport struct {
	calls    []fakeCall
	keysSeen []string
}

func (f *fakeTransport) generate(_ context.Context, key, _ string, _ []Message) (*Response, error) {
	f.keysSeen = append(f.keysSeen, key)
	if len(f.calls) == 0 {
		return nil, errors.New("unexpected extra call")
	}
	call := f.calls[0]
	f.calls = f.calls[1:]
	return call.resp, call.err
}

func newTestGemini(t *testing.T, keys []string, transport geminiTransport) *Gemini {
	t.Helper()
	g, err := NewGemini("gemini-2.5-flash-lite", Config{
		APIKeys: keys,
		Timeout: time.Second,
		Log:     zap.NewNop(),
	})
	if err != nil {
		t.Fatal(err)
	}
	g.idx = 0 // pin the starting credential for deterministic assertions
	g.transport = transport
	return g
}

func rateLimitErr() error {
	return &Error{Backend: "gemini", Kind: KindRateLimited, Status: 429, Err: errors.New("quota exceeded")}
}

func TestSendRateLimitRotatesAndRetriesOnce(t *testing.T) {
	ft := &fakeTransport{calls: []fakeCall{
		{err: rateLimitErr()},
		{resp: &Response{Content: "ok"}},
	}}
	g := newTestGemini(t, []string{"key-a", "key-b"}, ft)

	resp, err := g.Send(context.Background(), []Message{TextMessage(RoleUser, "hi")})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q", resp.Content)
	}
	if len(ft.keysSeen) != 2 || ft.keysSeen[0] != "key-a" || ft.keysSeen[1] != "key-b" {
		t.Errorf("keys attempted = %v, want [key-a key-b]", ft.keysSeen)
	}
	if g.idx != 1 {
		t.Errorf("cursor = %d, want 1 (stays on rotated key)", g.idx)
	}
}

func TestSendSecondRateLimitIsFinal(t *testing.T) {
	ft := &fakeTransport{calls: []fakeCall{
		{err: rateLimitErr()},
		{err: rateLimitErr()},
	}}
	g := newTestGemini(t, []string{"key-a", "key-b"}, ft)

	_, err := g.Send(context.Background(), []Message{TextMessage(RoleUser, "hi")})
	if !IsKind(err, KindRateLimited) {
		t.Fatalf("expected rate-limited error, got %v", err)
	}
	if len(ft.keysSeen) != 2 {
		t.Errorf("attempts = %d, want exactly 2", len(ft.keysSeen))
	}
}

func TestSendSingleKeyNeverRetries(t *testing.T) {
	ft := &fakeTransport{calls: []fakeCall{{err: rateLimitErr()}}}
	g := newTestGemini(t, []string{"key-a"}, ft)

	_, err := g.Send(context.Background(), []Message{TextMessage(RoleUser, "hi")})
	if !IsKind(err, KindRateLimited) {
		t.Fatalf("expected rate-limited error, got %v", err)
	}
	if len(ft.keysSeen) != 1 {
		t.Errorf("attempts = %d, want 1", len(ft.keysSeen))
	}
}

func TestSendAuthErrorNeverRetries(t *testing.T) {
	authErr := &Error{Backend: "gemini", Kind: KindAuth, Status: 401, Remediation: authRemediation, Err: errors.New("invalid key")}
	ft := &fakeTransport{calls: []fakeCall{{err: authErr}}}
	g := newTestGemini(t, []string{"key-a", "key-b"}, ft)

	_, err := g.Send(context.Background(), []Message{TextMessage(RoleUser, "hi")})
	if !IsKind(err, KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if len(ft.keysSeen) != 1 {
		t.Errorf("attempts = %d, want 1 (auth must not retry)", len(ft.keysSeen))
	}
	var pe *Error
	if !errors.As(err, &pe) || pe.Remediation == "" {
		t.Error("auth error should carry remediation guidance")
	}
}

func TestSendEmptyResponseIsError(t *testing.T) {
	ft := &fakeTransport{calls: []fakeCall{{resp: &Response{Content: "  \n "}}}}
	g := newTestGemini(t, []string{"key-a"}, ft)

	_, err := g.Send(context.Background(), []Message{TextMessage(RoleUser, "hi")})
	if !IsKind(err, KindEmptyResponse) {
		t.Fatalf("expected empty-response error, got %v", err)
	}
}

func TestToGenAIContents(t *testing.T) {
	msgs := []Message{
		TextMessage(RoleUser, "question"),
		TextMessage(RoleAssistant, "answer"),
		{Role: RoleUser, Parts: []content.Part{
			{Text: "look at this"},
			{MIME: "image/png", Data: []byte{0x89, 0x50}},
		}},
	}

	contents := toGenAIContents(msgs)
	if len(contents) != 3 {
		t.Fatalf("len = %d, want 3", len(contents))
	}
	if contents[0].Role != string(genai.RoleUser) {
		t.Errorf("role[0] = %q, want %q", contents[0].Role, genai.RoleUser)
	}
	if contents[1].Role != string(genai.RoleModel) {
		t.Errorf("role[1] = %q, want %q", contents[1].Role, genai.RoleModel)
	}
	if contents[2].Role != string(genai.RoleUser) {
		t.Errorf("role[2] = %q, want %q", contents[2].Role, genai.RoleUser)
	}
	if len(contents[2].Parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(contents[2].Parts))
	}
	if contents[2].Parts[0].Text != "look at this" {
		t.Errorf("text part = %q", contents[2].Parts[0].Text)
	}
	blob := contents[2].Parts[1].InlineData
	if blob == nil || blob.MIMEType != "image/png" || len(blob.Data) != 2 {
		t.Errorf("binary part not carried as inline data: %+v", contents[2].Parts[1])
	}
}

func TestSendLogsMessageCountEachAttempt(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ft := &fakeTransport{calls: []fakeCall{
		{err: rateLimitErr()},
		{resp: &Response{Content: "ok"}},
	}}
	g, err := NewGemini("gemini-2.5-flash-lite", Config{
		APIKeys: []string{"key-a", "key-b"},
		Timeout: time.Second,
		Log:     zap.New(core),
	})
	if err != nil {
		t.Fatal(err)
	}
	g.idx = 0
	g.transport = ft

	if _, err := g.Send(context.Background(), []Message{TextMessage(RoleUser, "hi")}); err != nil {
		t.Fatal(err)
	}

	entries := logs.FilterMessage("sending request").All()
	if len(entries) != 2 {
		t.Fatalf("logged %d send entries, want one per attempt", len(entries))
	}
	for i, e := range entries {
		if got, ok := e.ContextMap()["messages"]; !ok || got != int64(1) {
			t.Errorf("attempt %d logged messages=%v, want 1", i, got)
		}
	}
}

func TestSendSuccessKeepsCursor(t *testing.T) {
	ft := &fakeTransport{calls: []fakeCall{{resp: &Response{Content: "fine"}}}}
	g := newTestGemini(t, []string{"key-a", "key-b"}, ft)

	if _, err := g.Send(context.Background(), []Message{TextMessage(RoleUser, "hi")}); err != nil {
		t.Fatal(err)
	}
	if g.idx != 0 {
		t.Errorf("cursor moved to %d on success", g.idx)
	}
}
