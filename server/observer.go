package server

import "github.com/tailored-agentic-units/spicy/observability"

// Server event types.
const (
	EventListen      observability.EventType = "server.listen"
	EventRequest     observability.EventType = "server.request"
	EventChatOpen    observability.EventType = "server.chat.open"
	EventChatClose   observability.EventType = "server.chat.close"
	EventChatFailure observability.EventType = "server.chat.failure"
)
