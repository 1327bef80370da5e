package session

import (
	"slices"

	"github.com/tailored-agentic-units/spicy/core/protocol"
)

// FileChatState is everything the core remembers about one document: its
// session index, the active session id, and the visible transcript. An empty
// ActiveSessionID means the transcript has never been persisted.
type FileChatState struct {
	Sessions        []protocol.SessionMeta `json:"sessions"`
	ActiveSessionID string                 `json:"activeSessionId,omitempty"`
	Messages        []ChatMessage          `json:"messages"`
}

// EmptyState is the state of a document with no sessions and no transcript.
func EmptyState() FileChatState {
	return FileChatState{
		Sessions: []protocol.SessionMeta{},
		Messages: []ChatMessage{},
	}
}

// Clone returns a deep copy of s.
func (s FileChatState) Clone() FileChatState {
	s.Sessions = slices.Clone(s.Sessions)
	s.Messages = CloneMessages(s.Messages)
	return s
}
