package protocol

import (
	"encoding/json"
	"fmt"
)

// EventType identifies the kind of partial-response event.
type EventType string

const (
	EventThinking EventType = "thinking"
	EventText     EventType = "text"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// IsTerminal reports whether an event of this type ends a request.
func (t EventType) IsTerminal() bool {
	return t == EventDone || t == EventError
}

// Event is one partial-response event of a streaming chat request. Which fields
// are meaningful depends on Type:
//
//	thinking: Content (reasoning delta)
//	text:     Content (visible text delta)
//	done:     Explanation (optional replacement content), Changes (optional)
//	error:    Message (optional failure description)
type Event struct {
	Type        EventType    `json:"type"`
	Content     string       `json:"content,omitempty"`
	Message     string       `json:"message,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
	Changes     []FileChange `json:"changes,omitempty"`
}

// Thinking creates a reasoning delta event.
func Thinking(content string) Event {
	return Event{Type: EventThinking, Content: content}
}

// Text creates a visible text delta event.
func Text(content string) Event {
	return Event{Type: EventText, Content: content}
}

// Done creates a terminal success event. An empty explanation keeps the
// streamed text as the final content.
func Done(explanation string, changes []FileChange) Event {
	return Event{Type: EventDone, Explanation: explanation, Changes: changes}
}

// Failure creates a terminal error event.
func Failure(message string) Event {
	return Event{Type: EventError, Message: message}
}

// UnmarshalJSON rejects events whose type is not one of the four known kinds.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	switch decoded.Type {
	case EventThinking, EventText, EventDone, EventError:
	default:
		return fmt.Errorf("unknown event type: %q", decoded.Type)
	}

	*e = Event(decoded)
	return nil
}
