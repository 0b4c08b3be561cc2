package conversation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// exportedMessage/exportedConversation are the stable wire shapes written
// by Export* and read by Import*, independent of either backend's
// internal row layout.
type exportedMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp int64     `json:"timestamp_unix"`
	Tokens    int       `json:"tokens"`
}

type exportedConversation struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Messages   []exportedMessage `json:"messages"`
	TokenCount int               `json:"token_count"`
	CreatedAt  int64             `json:"created_at_unix"`
	UpdatedAt  int64             `json:"updated_at_unix"`
	Compacted  bool              `json:"compacted"`
}

func marshalConversation(c *Conversation) ([]byte, error) {
	exp := exportedConversation{
		ID:         c.ID,
		Title:      c.Title,
		TokenCount: c.TokenCount,
		CreatedAt:  c.CreatedAt.Unix(),
		UpdatedAt:  c.UpdatedAt.Unix(),
		Compacted:  c.Compacted,
	}
	for _, m := range c.Messages {
		exp.Messages = append(exp.Messages, exportedMessage{
			ID: m.ID, Role: m.Role, Content: m.Content,
			Timestamp: m.Timestamp.Unix(), Tokens: m.Tokens,
		})
	}
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("conversation: marshal export: %w", err)
	}
	return data, nil
}

func marshalAll(all []*Conversation) ([]byte, error) {
	out := make([]exportedConversation, 0, len(all))
	for _, c := range all {
		single, err := marshalConversation(c)
		if err != nil {
			return nil, err
		}
		var exp exportedConversation
		if err := json.Unmarshal(single, &exp); err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("conversation: marshal export all: %w", err)
	}
	return data, nil
}

// unmarshalConversation decodes an exported payload and, if idExists
// reports the id already present in the target store, reassigns a fresh
// UUID-derived id to both the conversation and every one of its messages
// before the caller inserts it — the collision-avoidance rule from
// spec §3/§8.
func unmarshalConversation(data []byte, idExists func(id string) bool) (*Conversation, error) {
	var exp exportedConversation
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("conversation: unmarshal import: %w", err)
	}

	id := exp.ID
	if id == "" || idExists(id) {
		id = uuid.NewString()
	}

	c := &Conversation{
		ID:         id,
		Title:      exp.Title,
		TokenCount: exp.TokenCount,
		CreatedAt:  unixTime(exp.CreatedAt),
		UpdatedAt:  unixTime(exp.UpdatedAt),
		Compacted:  exp.Compacted,
	}
	for _, m := range exp.Messages {
		msgID := m.ID
		if id != exp.ID {
			msgID = uuid.NewString()
		}
		c.Messages = append(c.Messages, Message{
			ID:             msgID,
			ConversationID: id,
			Role:           m.Role,
			Content:        m.Content,
			Timestamp:      unixTime(m.Timestamp),
			Tokens:         m.Tokens,
		})
	}
	return c, nil
}
