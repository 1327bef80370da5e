package kernel

import "github.com/tailored-agentic-units/spicy/observability"

// Kernel event types emitted by the session lifecycle.
const (
	EventDocumentSelect  observability.EventType = "kernel.document.select"
	EventCacheHit        observability.EventType = "kernel.cache.hit"
	EventLoadFailed      observability.EventType = "kernel.load.failed"
	EventSessionSwitch   observability.EventType = "kernel.session.switch"
	EventSessionNew      observability.EventType = "kernel.session.new"
	EventSessionDelete   observability.EventType = "kernel.session.delete"
	EventRequestStart    observability.EventType = "kernel.request.start"
	EventRequestComplete observability.EventType = "kernel.request.complete"
	EventPersist         observability.EventType = "kernel.persist"
	EventPersistSkipped  observability.EventType = "kernel.persist.skipped"
	EventPersistFailed   observability.EventType = "kernel.persist.failed"
)
