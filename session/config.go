package session

import "github.com/tailored-agentic-units/spicy/core/protocol"

const (
	defaultTitleLength = 50

	// UntitledSession names a transcript that has no user turn yet.
	UntitledSession = "New chat"
)

// Config holds transcript presentation parameters.
type Config struct {
	TitleLength int `json:"title_length,omitempty"` // Rune prefix of the first user turn used as the title.
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{TitleLength: defaultTitleLength}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.TitleLength > 0 {
		c.TitleLength = source.TitleLength
	}
}

// Title derives a display title from the first user turn, truncated to the
// configured number of runes.
func (c *Config) Title(msgs []ChatMessage) string {
	limit := c.TitleLength
	if limit <= 0 {
		limit = defaultTitleLength
	}

	for _, msg := range msgs {
		if msg.Role != protocol.RoleUser {
			continue
		}
		runes := []rune(msg.Content)
		if len(runes) > limit {
			runes = runes[:limit]
		}
		return string(runes)
	}
	return UntitledSession
}
