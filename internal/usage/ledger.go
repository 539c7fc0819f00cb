// Package usage keeps a token-accounting ledger in sqlite, one row per
// successful exchange. The conversation record stays authoritative;
// ledger failures are reported as warnings by callers.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quilltool/quill/internal/conversation"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage (
	ts                TEXT    NOT NULL,
	conversation_id   TEXT    NOT NULL,
	backend           TEXT    NOT NULL,
	model             TEXT    NOT NULL,
	prompt_tokens     INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_model ON usage(model);
`

// Ledger is the sqlite-backed usage store.
type Ledger struct {
	db *sql.DB
}

// Totals aggregates recorded usage.
type Totals struct {
	Requests         int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ModelTotals is the per-model breakdown.
type ModelTotals struct {
	Model string
	Totals
}

func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening usage ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing usage ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

// Record appends one exchange to the ledger.
func (l *Ledger) Record(ctx context.Context, conversationID, backend, model string, u conversation.TokenUsage) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO usage (ts, conversation_id, backend, model, prompt_tokens, completion_tokens, total_tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		conversationID, backend, model,
		u.PromptTokens, u.CompletionTokens, u.TotalTokens,
	)
	if err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}
	return nil
}

// Summary returns the overall totals.
func (l *Ledger) Summary(ctx context.Context) (Totals, error) {
	var t Totals
	row := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(prompt_tokens), 0),
		        COALESCE(SUM(completion_tokens), 0),
		        COALESCE(SUM(total_tokens), 0)
		 FROM usage`)
	if err := row.Scan(&t.Requests, &t.PromptTokens, &t.CompletionTokens, &t.TotalTokens); err != nil {
		return Totals{}, fmt.Errorf("summarizing usage: %w", err)
	}
	return t, nil
}

// ByModel returns totals grouped by model, highest total first.
func (l *Ledger) ByModel(ctx context.Context) ([]ModelTotals, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT model, COUNT(*),
		        COALESCE(SUM(prompt_tokens), 0),
		        COALESCE(SUM(completion_tokens), 0),
		        COALESCE(SUM(total_tokens), 0)
		 FROM usage GROUP BY model ORDER BY SUM(total_tokens) DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying usage by model: %w", err)
	}
	defer rows.Close()

	var out []ModelTotals
	for rows.Next() {
		var mt ModelTotals
		if err := rows.Scan(&mt.Model, &mt.Requests, &mt.PromptTokens, &mt.CompletionTokens, &mt.TotalTokens); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}
