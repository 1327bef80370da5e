package agent

import "github.com/tailored-agentic-units/spicy/observability"

// Agent event types emitted by the streaming backend.
const (
	EventRequestStart  observability.EventType = "agent.request.start"
	EventRequestFailed observability.EventType = "agent.request.failed"
	EventEditsApplied  observability.EventType = "agent.edits.applied"
)
