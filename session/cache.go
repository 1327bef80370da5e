package session

import "sync"

// Cache maps document identity to the last observed FileChatState of that
// document. Entries are never evicted; the key space is the set of documents
// visited during the process lifetime. All methods are safe for concurrent use
// and exchange deep copies.
type Cache struct {
	entries map[string]FileChatState
	mu      sync.RWMutex
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]FileChatState)}
}

func (c *Cache) Get(doc string) (FileChatState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.entries[doc]
	if !ok {
		return FileChatState{}, false
	}
	return state.Clone(), true
}

// Set overwrites the entry for doc unconditionally.
func (c *Cache) Set(doc string, state FileChatState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[doc] = state.Clone()
}

// Update applies fn to the cached entry for doc in place. Returns false when
// doc has no entry.
func (c *Cache) Update(doc string, fn func(state *FileChatState)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.entries[doc]
	if !ok {
		return false
	}
	fn(&state)
	c.entries[doc] = state
	return true
}
