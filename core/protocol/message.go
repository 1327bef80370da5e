// Package protocol defines the wire shapes shared by the chat state core, the
// streaming backend, and the persistence gateway.
package protocol

// Role identifies the sender of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is a role the core accepts in a transcript.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one history entry sent to the model: a transcript turn reduced to
// its role and visible content.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a Message with the given role and content.
//
// Example:
//
//	msg := protocol.NewMessage(protocol.RoleUser, "lower the cutoff frequency")
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// FileChange describes one side-effect edit the assistant performed on a
// document. Component is optional.
type FileChange struct {
	Component   string `json:"component,omitempty"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

// ChatRequest is the payload of one streaming chat call. Document is empty when
// no document is active. History holds the prior transcript followed by the new
// user turn, whose text is repeated in Message.
type ChatRequest struct {
	Message  string    `json:"message"`
	Document string    `json:"active_file,omitempty"`
	History  []Message `json:"history"`
}
