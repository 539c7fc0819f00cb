package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrNotFound is returned when no conversation matches an id or prefix.
var ErrNotFound = errors.New("conversation not found")

// Store persists conversations as one JSON file per conversation, with a
// markdown rendering written alongside.
type Store struct {
	dir string
	log *zap.Logger
}

// Summary is the listing view of one stored conversation.
type Summary struct {
	ID        string
	Messages  int
	UpdatedAt string
	Preview   string
}

func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating conversation dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the canonical JSON record, then regenerates the markdown
// twin. A twin failure is logged but does not fail the save; the JSON
// record is authoritative.
func (s *Store) Save(c *Conversation) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding conversation: %w", err)
	}
	if err := os.WriteFile(s.recordPath(c.ID), data, 0644); err != nil {
		return fmt.Errorf("writing conversation: %w", err)
	}

	twin := filepath.Join(s.dir, twinName(c))
	if err := os.WriteFile(twin, []byte(Markdown(c)), 0644); err != nil {
		s.log.Warn("failed to write markdown twin", zap.String("path", twin), zap.Error(err))
	}
	return nil
}

func twinName(c *Conversation) string {
	id := c.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s.md", id, Slug(c.FirstUserContent()))
}

// Load reads a conversation by exact id or by a unique id prefix.
func (s *Store) Load(id string) (*Conversation, error) {
	if c, err := s.read(s.recordPath(id)); err == nil {
		return c, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading conversation dir: %w", err)
	}
	var matches []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		full := strings.TrimSuffix(name, ".json")
		if strings.HasPrefix(full, id) {
			matches = append(matches, full)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return s.read(s.recordPath(matches[0]))
	default:
		return nil, fmt.Errorf("id prefix %q is ambiguous (%d matches)", id, len(matches))
	}
}

// Latest returns the most recently updated conversation.
func (s *Store) Latest() (*Conversation, error) {
	summaries, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, ErrNotFound
	}
	return s.Load(summaries[0].ID)
}

// List summarizes all stored conversations, most recently updated first.
// Unreadable records are skipped with a warning.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading conversation dir: %w", err)
	}

	var out []Summary
	var order []*Conversation
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		c, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.log.Warn("skipping unreadable conversation", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		order = append(order, c)
	}
	sort.Slice(order, func(i, j int) bool {
		return order[i].UpdatedAt.After(order[j].UpdatedAt)
	})
	for _, c := range order {
		out = append(out, Summary{
			ID:        c.ID,
			Messages:  len(c.Messages),
			UpdatedAt: c.UpdatedAt.Local().Format("2006-01-02 15:04"),
			Preview:   c.Preview(),
		})
	}
	return out, nil
}

func (s *Store) read(path string) (*Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("record %s has no id", filepath.Base(path))
	}
	return &c, nil
}
