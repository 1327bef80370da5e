// Package session holds the in-memory conversation state of the chat core: the
// Message Store of the active document, the per-document Session Cache, and
// conversions between live turns and their persisted form.
package session

// Transcript is the ordered Message Store of one document's active
// conversation. Implementations must be safe for concurrent use.
type Transcript interface {
	// Append adds turns to the end of the transcript.
	Append(msgs ...ChatMessage)
	// Update applies fn to the turn with the given id. Returns false when no
	// such turn exists.
	Update(id string, fn func(msg *ChatMessage)) bool
	// Messages returns a copy of the transcript.
	Messages() []ChatMessage
	// Replace swaps the whole transcript for msgs.
	Replace(msgs []ChatMessage)
	// Clear empties the transcript.
	Clear()
}
