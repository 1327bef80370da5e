// Package stream assembles an incrementally delivered model response into a
// single placeholder turn of the Message Store.
//
// Events are drained from a channel by a single consumer and applied in
// delivery order, one store update per event:
//
//	a := stream.NewAssembler(target)
//	result := a.Run(ctx, events)
package stream

import (
	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/session"
)

// DefaultErrorLabel describes an error event that carries no message.
const DefaultErrorLabel = "Unknown error"

// ErrorContent formats the visible content of a failed turn.
func ErrorContent(message string) string {
	if message == "" {
		message = DefaultErrorLabel
	}
	return "Error: " + message
}

// Apply mutates msg according to ev and reports whether the turn is now
// terminal. Thinking and text deltas are independent append accumulators, so
// interleaving is harmless. A turn that is already terminal is left untouched.
func Apply(msg *session.ChatMessage, ev protocol.Event) bool {
	if !msg.IsStreaming {
		return true
	}
	msg.IsLoading = false

	switch ev.Type {
	case protocol.EventThinking:
		msg.Thinking += ev.Content
	case protocol.EventText:
		msg.Content += ev.Content
	case protocol.EventDone:
		if ev.Explanation != "" {
			msg.Content = ev.Explanation
		}
		if len(ev.Changes) > 0 {
			msg.Changes = append([]protocol.FileChange(nil), ev.Changes...)
		}
		msg.IsStreaming = false
	case protocol.EventError:
		Terminate(msg, ev.Message)
	}

	return !msg.IsStreaming
}

// Terminate ends a turn with an error. It is how transport failures, which
// arrive without an error event, are folded into the turn.
func Terminate(msg *session.ChatMessage, message string) {
	if !msg.IsStreaming {
		return
	}
	msg.Content = ErrorContent(message)
	msg.IsStreaming = false
	msg.IsLoading = false
}
