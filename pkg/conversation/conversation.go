// Package conversation provides a pluggable persistent transcript store
// with two concrete backends (SQLite and one-JSON-per-conversation file),
// plus export/import, per spec §4.O.
package conversation

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a conversation id has no stored record.
var ErrNotFound = errors.New("conversation: not found")

// Role is who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a Conversation. Tokens is immutable once set:
// token counting is delegated to an external tokenizer collaborator
// (spec §4.O), never recomputed by the store.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	Timestamp      time.Time
	Tokens         int
}

// Conversation is an ordered transcript with at most one instance per
// store marked current.
type Conversation struct {
	ID         string
	Title      string
	Messages   []Message
	TokenCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Compacted  bool
}

// Store is the persistence contract every backend implements.
type Store interface {
	SaveConversation(ctx context.Context, c *Conversation) error
	SaveMessage(ctx context.Context, conversationID string, m Message) error
	LoadConversation(ctx context.Context, id string) (*Conversation, error)
	LoadCurrent(ctx context.Context) (*Conversation, error)
	SetCurrent(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]*Conversation, error)
	ExportConversation(ctx context.Context, id string) ([]byte, error)
	ImportConversation(ctx context.Context, data []byte) (*Conversation, error)
	ExportAll(ctx context.Context) ([]byte, error)
}
