package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore persists one JSON file per conversation under Dir, plus a
// sidecar "current" marker file. Simpler semantics than the relational
// backend: no indices, no foreign keys, a single mutex around all writes.
type FileStore struct {
	Dir string

	mu sync.Mutex
}

// NewFileStore builds a FileStore rooted at dir, creating it if absent.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create dir %s: %w", dir, err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.Dir, id+".json")
}

func (s *FileStore) currentMarkerPath() string {
	return filepath.Join(s.Dir, ".current")
}

type fileRecord struct {
	Conversation
}

func (s *FileStore) readLocked(id string) (*Conversation, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("file store: read %s: %w", id, err)
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("file store: decode %s: %w", id, err)
	}
	c := rec.Conversation
	return &c, nil
}

func (s *FileStore) writeLocked(c *Conversation) error {
	data, err := json.MarshalIndent(fileRecord{*c}, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encode %s: %w", c.ID, err)
	}
	tmp := s.path(c.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("file store: write %s: %w", c.ID, err)
	}
	return os.Rename(tmp, s.path(c.ID))
}

// SaveConversation upserts c, stamping UpdatedAt.
func (s *FileStore) SaveConversation(ctx context.Context, c *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.UpdatedAt = time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}
	return s.writeLocked(c)
}

// SaveMessage appends m to conversationID's transcript.
func (s *FileStore) SaveMessage(ctx context.Context, conversationID string, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.readLocked(conversationID)
	if err != nil {
		return err
	}
	m.ConversationID = conversationID
	c.Messages = append(c.Messages, m)
	c.TokenCount += m.Tokens
	c.UpdatedAt = time.Now()
	return s.writeLocked(c)
}

// LoadConversation reads id's full record.
func (s *FileStore) LoadConversation(ctx context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(id)
}

// LoadCurrent reads the conversation named by the current marker.
func (s *FileStore) LoadCurrent(ctx context.Context) (*Conversation, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.currentMarkerPath())
	s.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("file store: read current marker: %w", err)
	}
	return s.LoadConversation(ctx, string(data))
}

// SetCurrent overwrites the current marker with id. There is exactly one
// marker file, so only one conversation can ever be current.
func (s *FileStore) SetCurrent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.readLocked(id); err != nil {
		return err
	}
	return os.WriteFile(s.currentMarkerPath(), []byte(id), 0o644)
}

// Archive clears the current marker if it points at id. The file backend
// has no separate archived flag; archiving just means "no longer current".
func (s *FileStore) Archive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.currentMarkerPath())
	if err == nil && string(data) == id {
		_ = os.Remove(s.currentMarkerPath())
	}
	return nil
}

// Delete removes id's file. Deleting the current conversation clears the
// marker.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("file store: delete %s: %w", id, err)
	}
	if data, err := os.ReadFile(s.currentMarkerPath()); err == nil && string(data) == id {
		_ = os.Remove(s.currentMarkerPath())
	}
	return nil
}

// ListAll returns every stored conversation, sorted by id for determinism.
func (s *FileStore) ListAll(ctx context.Context) ([]*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("file store: list dir: %w", err)
	}
	var out []*Conversation
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		c, err := s.readLocked(id)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ExportConversation marshals id's full record to JSON.
func (s *FileStore) ExportConversation(ctx context.Context, id string) ([]byte, error) {
	c, err := s.LoadConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	return marshalConversation(c)
}

// ImportConversation decodes data and inserts it, reassigning the id on
// collision.
func (s *FileStore) ImportConversation(ctx context.Context, data []byte) (*Conversation, error) {
	s.mu.Lock()
	c, err := unmarshalConversation(data, func(id string) bool {
		_, err := os.Stat(s.path(id))
		return err == nil
	})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	writeErr := s.writeLocked(c)
	s.mu.Unlock()
	if writeErr != nil {
		return nil, writeErr
	}
	return c, nil
}

// ExportAll marshals every stored conversation to a single JSON array.
func (s *FileStore) ExportAll(ctx context.Context) ([]byte, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return marshalAll(all)
}

