package agent

import (
	"encoding/json"
	"fmt"

	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/workspace"
)

type thinkingConfig struct {
	Type string `json:"type"`
}

// messagesRequest is the body of a streaming messages API call.
type messagesRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []protocol.Message `json:"messages"`
	Stream    bool               `json:"stream"`
	Thinking  *thinkingConfig    `json:"thinking,omitempty"`
}

func newMessagesRequest(cfg *Config, messages []protocol.Message) *messagesRequest {
	req := &messagesRequest{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		System:    cfg.System,
		Messages:  messages,
		Stream:    true,
	}
	if cfg.Thinking != "" && cfg.Thinking != "disabled" {
		req.Thinking = &thinkingConfig{Type: cfg.Thinking}
	}
	return req
}

func (r *messagesRequest) Headers(apiKey string) map[string]string {
	return map[string]string{
		"Content-Type":      "application/json",
		"Accept":            "text/event-stream",
		"x-api-key":         apiKey,
		"anthropic-version": apiVersion,
	}
}

func (r *messagesRequest) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// UserContent prefixes message with the numbered content of the active
// document. Without a document the message is sent as is.
func UserContent(document, content, message string) string {
	if document == "" {
		return message
	}
	return fmt.Sprintf("Current file: %s\n\n%s\n\n%s", document, workspace.NumberedLines(content), message)
}

// BuildMessages converts request history into provider messages and appends
// the user turn carrying the file context. History may already end with the
// plain user turn for message; that entry is replaced rather than repeated.
// Turns with invalid roles or no content are dropped.
func BuildMessages(history []protocol.Message, message, userContent string) []protocol.Message {
	if n := len(history); n > 0 && history[n-1].Role == protocol.RoleUser && history[n-1].Content == message {
		history = history[:n-1]
	}

	messages := make([]protocol.Message, 0, len(history)+1)
	for _, m := range history {
		if !m.Role.IsValid() || m.Content == "" {
			continue
		}
		messages = append(messages, m)
	}
	return append(messages, protocol.NewMessage(protocol.RoleUser, userContent))
}
