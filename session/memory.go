package session

import "sync"

type memoryTranscript struct {
	messages []ChatMessage
	mu       sync.RWMutex
}

// NewTranscript creates a Transcript backed by an in-memory slice.
func NewTranscript() Transcript {
	return &memoryTranscript{}
}

func (t *memoryTranscript) Append(msgs ...ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, msg := range msgs {
		t.messages = append(t.messages, msg.Clone())
	}
}

func (t *memoryTranscript) Update(id string, fn func(msg *ChatMessage)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.messages {
		if t.messages[i].ID == id {
			fn(&t.messages[i])
			return true
		}
	}
	return false
}

func (t *memoryTranscript) Messages() []ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return CloneMessages(t.messages)
}

func (t *memoryTranscript) Replace(msgs []ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = CloneMessages(msgs)
}

func (t *memoryTranscript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}
