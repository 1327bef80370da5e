package stream

import "github.com/tailored-agentic-units/spicy/observability"

// Assembler event types.
const (
	EventDelta    observability.EventType = "stream.delta"
	EventComplete observability.EventType = "stream.complete"
	EventFailed   observability.EventType = "stream.failed"
)
