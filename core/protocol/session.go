package protocol

// StoredMessage is the persisted form of a transcript turn. Thinking and
// Changes are omitted from the encoding when empty, so a save/load round trip
// reproduces the same set of present optional fields.
type StoredMessage struct {
	ID       string       `json:"id"`
	Role     Role         `json:"role"`
	Content  string       `json:"content"`
	Thinking string       `json:"thinking,omitempty"`
	Changes  []FileChange `json:"changes,omitempty"`
}

// SessionMeta is the summary row for one stored conversation of a document.
// Timestamps are Unix milliseconds rendered as decimal strings.
type SessionMeta struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

// SessionIndex is the listing of every stored conversation of a document,
// newest first.
type SessionIndex struct {
	Sessions []SessionMeta `json:"sessions"`
}

// SessionData is a full persisted transcript.
type SessionData struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Messages []StoredMessage `json:"messages"`
}
