package session

import (
	"slices"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/spicy/core/protocol"
)

// ChatMessage is one conversation turn as held in the Message Store.
//
// IsStreaming is true while an assistant turn still receives deltas. IsLoading
// is a presentational flag for "waiting for the first byte" and is never
// persisted.
type ChatMessage struct {
	ID          string                `json:"id"`
	Role        protocol.Role         `json:"role"`
	Content     string                `json:"content"`
	Thinking    string                `json:"thinking,omitempty"`
	Changes     []protocol.FileChange `json:"changes,omitempty"`
	IsStreaming bool                  `json:"isStreaming,omitempty"`
	IsLoading   bool                  `json:"isLoading,omitempty"`
}

// NewMessageID returns a fresh turn identifier (UUIDv7, time ordered).
func NewMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewUserMessage creates a terminal user turn with its full content.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{
		ID:      NewMessageID(),
		Role:    protocol.RoleUser,
		Content: content,
	}
}

// NewPlaceholder creates the non-terminal assistant turn that a streaming
// response is assembled into.
func NewPlaceholder() ChatMessage {
	return ChatMessage{
		ID:          NewMessageID(),
		Role:        protocol.RoleAssistant,
		IsStreaming: true,
		IsLoading:   true,
	}
}

// Clone returns a deep copy of m.
func (m ChatMessage) Clone() ChatMessage {
	m.Changes = slices.Clone(m.Changes)
	return m
}

// CloneMessages deep-copies a transcript.
func CloneMessages(msgs []ChatMessage) []ChatMessage {
	if msgs == nil {
		return nil
	}
	copied := make([]ChatMessage, len(msgs))
	for i, msg := range msgs {
		copied[i] = msg.Clone()
	}
	return copied
}

// ToStored strips transient fields. Empty Changes become nil so the encoding
// omits the key.
func ToStored(m ChatMessage) protocol.StoredMessage {
	stored := protocol.StoredMessage{
		ID:       m.ID,
		Role:     m.Role,
		Content:  m.Content,
		Thinking: m.Thinking,
	}
	if len(m.Changes) > 0 {
		stored.Changes = slices.Clone(m.Changes)
	}
	return stored
}

// FromStored rebuilds a terminal turn from its persisted form.
func FromStored(s protocol.StoredMessage) ChatMessage {
	m := ChatMessage{
		ID:       s.ID,
		Role:     s.Role,
		Content:  s.Content,
		Thinking: s.Thinking,
	}
	if len(s.Changes) > 0 {
		m.Changes = slices.Clone(s.Changes)
	}
	return m
}

// StoreMessages converts a transcript to its persisted form.
func StoreMessages(msgs []ChatMessage) []protocol.StoredMessage {
	stored := make([]protocol.StoredMessage, len(msgs))
	for i, msg := range msgs {
		stored[i] = ToStored(msg)
	}
	return stored
}

// LoadMessages converts a persisted transcript to live turns.
func LoadMessages(stored []protocol.StoredMessage) []ChatMessage {
	msgs := make([]ChatMessage, len(stored))
	for i, s := range stored {
		msgs[i] = FromStored(s)
	}
	return msgs
}

// History reduces a transcript to the role/content pairs sent to the model.
func History(msgs []ChatMessage) []protocol.Message {
	history := make([]protocol.Message, len(msgs))
	for i, msg := range msgs {
		history[i] = protocol.NewMessage(msg.Role, msg.Content)
	}
	return history
}
