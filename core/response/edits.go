package response

import (
	"encoding/json"
	"strings"

	"github.com/tailored-agentic-units/spicy/core/protocol"
)

// DefaultExplanation is reported when an edit envelope carries no explanation.
const DefaultExplanation = "Changes applied."

const editsMarker = `{"edits"`

// Edit replaces the 1-based inclusive line range [Start, End] with
// Replacement. An empty Replacement deletes the range.
type Edit struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Replacement string `json:"replacement"`
}

// EditEnvelope is the structured answer the model gives in edit mode.
type EditEnvelope struct {
	Edits       []Edit
	Explanation string
	Changes     []protocol.FileChange
}

type rawEnvelope struct {
	Edits       *[]json.RawMessage `json:"edits"`
	Explanation *string            `json:"explanation"`
	Changes     []json.RawMessage  `json:"changes"`
}

type rawEdit struct {
	Start       *int    `json:"start"`
	End         *int    `json:"end"`
	Replacement *string `json:"replacement"`
}

type rawChange struct {
	Component   *string `json:"component"`
	Filename    *string `json:"filename"`
	Description *string `json:"description"`
}

// ParseEditEnvelope extracts an edit envelope from accumulated response text.
// The whole text is tried first; failing that, the text starting at the first
// `{"edits"` is decoded, which tolerates reasoning the model wrote before the
// JSON. Edits and changes missing required fields are dropped.
func ParseEditEnvelope(text string) (*EditEnvelope, bool) {
	if env, ok := decodeEnvelope(text); ok {
		return env, true
	}

	if idx := strings.Index(text, editsMarker); idx >= 0 {
		return decodeEnvelope(text[idx:])
	}
	return nil, false
}

func decodeEnvelope(text string) (*EditEnvelope, bool) {
	var raw rawEnvelope
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&raw); err != nil {
		return nil, false
	}
	if raw.Edits == nil {
		return nil, false
	}

	env := &EditEnvelope{Explanation: DefaultExplanation}
	if raw.Explanation != nil {
		env.Explanation = *raw.Explanation
	}

	for _, msg := range *raw.Edits {
		var e rawEdit
		if err := json.Unmarshal(msg, &e); err != nil {
			continue
		}
		if e.Start == nil || e.End == nil || e.Replacement == nil {
			continue
		}
		env.Edits = append(env.Edits, Edit{Start: *e.Start, End: *e.End, Replacement: *e.Replacement})
	}

	for _, msg := range raw.Changes {
		var c rawChange
		if err := json.Unmarshal(msg, &c); err != nil {
			continue
		}
		if c.Filename == nil || c.Description == nil {
			continue
		}
		change := protocol.FileChange{Filename: *c.Filename, Description: *c.Description}
		if c.Component != nil {
			change.Component = *c.Component
		}
		env.Changes = append(env.Changes, change)
	}

	return env, true
}
