package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tailored-agentic-units/spicy/session"
)

// streamPrinter writes the growth of one assistant turn as kernel state
// changes arrive. Reasoning is printed dimmed before the answer. A final
// explanation that replaces the streamed text is printed in full.
type streamPrinter struct {
	out io.Writer

	mu       sync.Mutex
	document string
	turn     string
	thinking string
	content  string
}

func newStreamPrinter(out io.Writer) *streamPrinter {
	return &streamPrinter{out: out}
}

// track starts following turn id of document.
func (p *streamPrinter) track(document, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.document = document
	p.turn = id
	p.thinking = ""
	p.content = ""
}

// update is a kernel.Listener.
func (p *streamPrinter) update(document string, state session.FileChatState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.turn == "" || document != p.document {
		return
	}
	msg, ok := findTurn(state.Messages, p.turn)
	if !ok {
		return
	}

	if len(msg.Thinking) > len(p.thinking) && strings.HasPrefix(msg.Thinking, p.thinking) {
		fmt.Fprint(p.out, thinkingStyle.Render(msg.Thinking[len(p.thinking):]))
		p.thinking = msg.Thinking
	}

	switch {
	case msg.Content == p.content:
	case strings.HasPrefix(msg.Content, p.content):
		if p.content == "" && p.thinking != "" {
			fmt.Fprint(p.out, "\n\n")
		}
		fmt.Fprint(p.out, msg.Content[len(p.content):])
		p.content = msg.Content
	default:
		if p.content != "" || p.thinking != "" {
			fmt.Fprint(p.out, "\n\n")
		}
		fmt.Fprint(p.out, msg.Content)
		p.content = msg.Content
	}

	if !msg.IsStreaming {
		fmt.Fprintln(p.out)
		renderChanges(p.out, msg.Changes)
		p.turn = ""
	}
}

func findTurn(msgs []session.ChatMessage, id string) (session.ChatMessage, bool) {
	for _, m := range msgs {
		if m.ID == id {
			return m, true
		}
	}
	return session.ChatMessage{}, false
}
