// Package response parses the streaming output of the model provider: the
// server-sent event lines of the messages API and the JSON edit envelope the
// model answers with when asked to modify a document.
package response

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Server-sent event types of the messages API that the backend acts on.
const (
	TypeContentBlockDelta = "content_block_delta"
	TypeMessageStop       = "message_stop"
	TypeError             = "error"

	DeltaThinking = "thinking_delta"
	DeltaText     = "text_delta"
)

const dataPrefix = "data: "

// StreamingChunk is one decoded `data:` payload of the event stream.
type StreamingChunk struct {
	Type  string `json:"type"`
	Delta struct {
		Type     string `json:"type"`
		Thinking string `json:"thinking,omitempty"`
		Text     string `json:"text,omitempty"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// IsThinking reports whether the chunk carries a reasoning delta.
func (c *StreamingChunk) IsThinking() bool {
	return c.Type == TypeContentBlockDelta && c.Delta.Type == DeltaThinking
}

// IsText reports whether the chunk carries a visible text delta.
func (c *StreamingChunk) IsText() bool {
	return c.Type == TypeContentBlockDelta && c.Delta.Type == DeltaText
}

// ErrorMessage returns the provider's error description, or a generic label.
func (c *StreamingChunk) ErrorMessage() string {
	if c.Error == nil || c.Error.Message == "" {
		return "Unknown API error"
	}
	return c.Error.Message
}

// ParseLine decodes one line of the event stream. It returns ok=false for lines
// that carry no payload (comments, `event:` lines, blanks, and `[DONE]`).
func ParseLine(line string) (chunk *StreamingChunk, ok bool, err error) {
	data, found := strings.CutPrefix(strings.TrimRight(line, "\r\n"), dataPrefix)
	if !found || data == "[DONE]" {
		return nil, false, nil
	}

	var c StreamingChunk
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, false, fmt.Errorf("failed to parse stream chunk: %w", err)
	}
	return &c, true, nil
}
