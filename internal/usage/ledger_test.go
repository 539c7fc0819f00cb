package usage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quilltool/quill/internal/conversation"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerRoundTrip(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, "conv-1", "gemini", "gemini-2.5-flash-lite",
		conversation.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}))
	require.NoError(t, l.Record(ctx, "conv-1", "gemini", "gemini-2.5-flash-lite",
		conversation.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}))
	require.NoError(t, l.Record(ctx, "conv-2", "ollama", "llama3.2",
		conversation.TokenUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}))

	totals, err := l.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, Totals{Requests: 3, PromptTokens: 117, CompletionTokens: 58, TotalTokens: 175}, totals)

	byModel, err := l.ByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	require.Equal(t, "gemini-2.5-flash-lite", byModel[0].Model)
	require.Equal(t, 165, byModel[0].TotalTokens)
	require.Equal(t, "llama3.2", byModel[1].Model)
}

func TestLedgerEmptySummary(t *testing.T) {
	l := openTestLedger(t)
	totals, err := l.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, Totals{}, totals)
}
