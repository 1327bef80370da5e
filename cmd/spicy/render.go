package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/memory"
)

// Transcript output formats.
const (
	formatText = "text"
	formatYAML = "yaml"
	formatJSON = "json"
)

const timeLayout = "2006-01-02 15:04"

type exportChange struct {
	Filename    string `yaml:"filename"`
	Component   string `yaml:"component,omitempty"`
	Description string `yaml:"description"`
}

type exportMessage struct {
	Role     string         `yaml:"role"`
	Content  string         `yaml:"content"`
	Thinking string         `yaml:"thinking,omitempty"`
	Changes  []exportChange `yaml:"changes,omitempty"`
}

type exportSession struct {
	ID       string          `yaml:"id"`
	Title    string          `yaml:"title"`
	Document string          `yaml:"document"`
	Messages []exportMessage `yaml:"messages"`
}

func newExport(document string, data protocol.SessionData) exportSession {
	out := exportSession{
		ID:       data.ID,
		Title:    data.Title,
		Document: document,
		Messages: make([]exportMessage, 0, len(data.Messages)),
	}
	for _, m := range data.Messages {
		msg := exportMessage{Role: string(m.Role), Content: m.Content, Thinking: m.Thinking}
		for _, c := range m.Changes {
			msg.Changes = append(msg.Changes, exportChange{Filename: c.Filename, Component: c.Component, Description: c.Description})
		}
		out.Messages = append(out.Messages, msg)
	}
	return out
}

func renderSessions(w io.Writer, document string, sessions []protocol.SessionMeta) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("No saved chats for "+document+"."))
		return err
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s (%d chats)", document, len(sessions))))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			titleStyle.Render(s.Title),
			countStyle.Render(fmt.Sprintf("%d msgs", s.MessageCount)),
			dimStyle.Render(formatTimestamp(s.UpdatedAt)),
			idStyle.Render(s.ID),
		)
	}
	return tw.Flush()
}

func renderTranscript(w io.Writer, document string, data protocol.SessionData, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(newExport(document, data))
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case formatText, "":
		return renderText(w, data)
	default:
		return fmt.Errorf("unknown format %q (want text, yaml or json)", format)
	}
}

func renderText(w io.Writer, data protocol.SessionData) error {
	fmt.Fprintln(w, headerStyle.Render(data.Title))
	fmt.Fprintln(w, idStyle.Render(data.ID))

	for _, m := range data.Messages {
		fmt.Fprintln(w)
		if m.Role == protocol.RoleUser {
			fmt.Fprintln(w, userStyle.Render("You"))
		} else {
			fmt.Fprintln(w, assistantStyle.Render("Assistant"))
		}
		if m.Thinking != "" {
			fmt.Fprintln(w, thinkingStyle.Render(strings.TrimSpace(m.Thinking)))
		}
		fmt.Fprintln(w, m.Content)
		renderChanges(w, m.Changes)
	}
	return nil
}

func renderChanges(w io.Writer, changes []protocol.FileChange) {
	for _, c := range changes {
		target := c.Filename
		if c.Component != "" {
			target += " " + c.Component
		}
		fmt.Fprintln(w, changeStyle.Render(fmt.Sprintf("  ~ %s: %s", target, c.Description)))
	}
}

func formatTimestamp(s string) string {
	t, err := memory.ParseTimestamp(s)
	if err != nil {
		return s
	}
	return t.Local().Format(timeLayout)
}
