package conversation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "conversations"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)

	c := New("gemini-2.5-flash-lite")
	c.Append(Message{
		Role:    RoleUser,
		Content: "summarize this file",
		Resources: []ResourceInfo{
			{Type: ResourceTextFile, Path: "/tmp/notes.txt"},
			{Type: ResourceClipboardImage},
		},
	})
	c.Append(Message{
		Role:    RoleAssistant,
		Content: "Here is the summary.",
		Usage:   TokenUsage{PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20},
	})
	if err := s.Save(c); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := s.Load(c.ID)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestSaveWritesMarkdownTwin(t *testing.T) {
	s := testStore(t)
	c := New("m")
	c.Append(Message{Role: RoleUser, Content: "draft the release notes"})
	if err := s.Save(c); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(s.dir, c.ID[:8]+"-draft-release-notes.md")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("expected markdown twin at %s: %v", want, err)
	}
	if !strings.Contains(string(data), "draft the release notes") {
		t.Error("twin does not contain the prompt text")
	}
}

func TestLoadByUniquePrefix(t *testing.T) {
	s := testStore(t)
	c := New("m")
	c.Append(Message{Role: RoleUser, Content: "hi"})
	if err := s.Save(c); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(c.ID[:8])
	if err != nil {
		t.Fatalf("Load(prefix) error: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("loaded %s, want %s", got.ID, c.ID)
	}
}

func TestLoadAmbiguousPrefix(t *testing.T) {
	s := testStore(t)
	for _, id := range []string{"abc11111", "abc22222"} {
		c := &Conversation{ID: id, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		if err := s.Save(c); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Load("abc"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguous prefix error, got %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	s := testStore(t)
	if _, err := s.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestAndListOrder(t *testing.T) {
	s := testStore(t)

	old := New("m")
	old.Append(Message{Role: RoleUser, Content: "older", Timestamp: time.Now().Add(-time.Hour)})
	old.UpdatedAt = time.Now().Add(-time.Hour)
	recent := New("m")
	recent.Append(Message{Role: RoleUser, Content: "newer"})
	for _, c := range []*Conversation{old, recent} {
		if err := s.Save(c); err != nil {
			t.Fatal(err)
		}
	}

	summaries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 || summaries[0].ID != recent.ID {
		t.Fatalf("expected newest first, got %+v", summaries)
	}

	latest, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != recent.ID {
		t.Errorf("Latest() = %s, want %s", latest.ID, recent.ID)
	}
}

func TestLatestEmptyStore(t *testing.T) {
	s := testStore(t)
	if _, err := s.Latest(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSkipsCorruptRecords(t *testing.T) {
	s := testStore(t)
	c := New("m")
	c.Append(Message{Role: RoleUser, Content: "good"})
	if err := s.Save(c); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	summaries, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != c.ID {
		t.Fatalf("expected one good record, got %+v", summaries)
	}
}

func TestUnknownResourceTypeRoundTrips(t *testing.T) {
	s := testStore(t)
	raw := `{
		"id": "future-record",
		"model": "m",
		"created_at": "2026-01-01T00:00:00Z",
		"updated_at": "2026-01-01T00:00:00Z",
		"messages": [
			{"role": "user", "content": "hi", "timestamp": "2026-01-01T00:00:00Z",
			 "resources": [{"type": "hologram", "path": "/x"}], "usage": {}}
		]
	}`
	if err := os.WriteFile(filepath.Join(s.dir, "future-record.json"), []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load("future-record")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Messages[0].Resources[0].Type != "hologram" {
		t.Errorf("unknown resource type not preserved: %+v", got.Messages[0].Resources[0])
	}
}
