// Package agent is the chat backend of the core: it turns a ChatRequest into a
// stream of thinking/text/done/error events by calling the model provider, and
// applies the line edits the model answers with to the active document.
//
//	s := agent.NewAnthropicStreamer(&cfg, ws)
//	events, err := s.StreamChat(ctx, protocol.ChatRequest{Message: "lower the cutoff", Document: "amp.asc"})
package agent

import (
	"context"

	"github.com/tailored-agentic-units/spicy/core/protocol"
)

// Streamer opens one streaming chat request. A returned error means the
// request could not be dispatched; otherwise the channel delivers events in
// order, ends with exactly one done or error event, and is then closed.
// Producers stop sending once ctx is cancelled.
type Streamer interface {
	StreamChat(ctx context.Context, req protocol.ChatRequest) (<-chan protocol.Event, error)
}

// StreamerFunc adapts a function to the Streamer interface.
type StreamerFunc func(ctx context.Context, req protocol.ChatRequest) (<-chan protocol.Event, error)

func (f StreamerFunc) StreamChat(ctx context.Context, req protocol.ChatRequest) (<-chan protocol.Event, error) {
	return f(ctx, req)
}
