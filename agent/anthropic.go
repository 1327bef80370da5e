package agent

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/core/response"
	"github.com/tailored-agentic-units/spicy/observability"
	"github.com/tailored-agentic-units/spicy/stream"
	"github.com/tailored-agentic-units/spicy/workspace"
)

const (
	eventBuffer  = 64
	maxLineBytes = 1 << 20
	maxErrorBody = 4 << 10
)

// Option configures an AnthropicStreamer.
type Option func(*AnthropicStreamer)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *AnthropicStreamer) { s.client = c }
}

// WithObserver routes streamer events to o.
func WithObserver(o observability.Observer) Option {
	return func(s *AnthropicStreamer) { s.observer = o }
}

// WithGetenv replaces the environment lookup used for the API key.
func WithGetenv(getenv func(string) string) Option {
	return func(s *AnthropicStreamer) { s.getenv = getenv }
}

// AnthropicStreamer streams chat responses from the Anthropic messages API.
//
// Configuration problems (no API key, no working directory, unreadable
// document) and non-2xx responses are reported as a single error event. Only a
// request that cannot be sent at all is returned as an error.
//
// A response whose first text chunk starts with '{' is treated as an edit
// envelope: its text is withheld, and on completion the edits are applied to
// the document and reported through the done event's explanation and changes.
type AnthropicStreamer struct {
	cfg       Config
	workspace *workspace.Workspace
	client    *http.Client
	observer  observability.Observer
	getenv    func(string) string
}

// NewAnthropicStreamer creates a streamer reading documents from ws.
func NewAnthropicStreamer(cfg *Config, ws *workspace.Workspace, opts ...Option) *AnthropicStreamer {
	merged := DefaultConfig()
	merged.Merge(cfg)

	s := &AnthropicStreamer{
		cfg:       merged,
		workspace: ws,
		client:    &http.Client{},
		observer:  observability.NoOpObserver{},
		getenv:    os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AnthropicStreamer) apiKey() string {
	if s.cfg.APIKey != "" {
		return s.cfg.APIKey
	}
	if s.cfg.APIKeyEnv != "" {
		return s.getenv(s.cfg.APIKeyEnv)
	}
	return ""
}

func (s *AnthropicStreamer) StreamChat(ctx context.Context, req protocol.ChatRequest) (<-chan protocol.Event, error) {
	out := stream.NewChannel[protocol.Event](ctx, eventBuffer)

	apiKey := s.apiKey()
	if apiKey == "" {
		return s.reject(ctx, out, ErrMissingAPIKey.Error()), nil
	}
	if _, err := s.workspace.Directory(); err != nil {
		return s.reject(ctx, out, err.Error()), nil
	}

	var content string
	if req.Document != "" {
		var err error
		content, err = s.workspace.Read(req.Document)
		if err != nil {
			return s.reject(ctx, out, err.Error()), nil
		}
	}

	body := newMessagesRequest(&s.cfg, BuildMessages(req.History, req.Message, UserContent(req.Document, content, req.Message)))
	payload, err := body.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range body.Headers(apiKey) {
		httpReq.Header.Set(key, value)
	}

	s.emit(ctx, EventRequestStart, observability.LevelInfo, map[string]any{
		"model":    s.cfg.Model,
		"document": req.Document,
		"messages": len(body.Messages),
	})

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return s.reject(ctx, out, fmt.Sprintf("%s (%d): %s", ErrAPIStatus, resp.StatusCode, strings.TrimSpace(string(detail)))), nil
	}

	go s.consume(ctx, resp.Body, req.Document, out)
	return out.Out(), nil
}

// reject delivers a single error event on a fresh channel.
func (s *AnthropicStreamer) reject(ctx context.Context, out *stream.Channel[protocol.Event], message string) <-chan protocol.Event {
	s.emit(ctx, EventRequestFailed, observability.LevelWarning, map[string]any{
		"error": message,
	})
	out.Send(ctx, protocol.Failure(message))
	out.Close()
	return out.Out()
}

// consume reads the event stream until message_stop, an API error, a read
// failure, or end of body.
func (s *AnthropicStreamer) consume(ctx context.Context, body io.ReadCloser, document string, out *stream.Channel[protocol.Event]) {
	defer out.Close()
	defer body.Close()

	var (
		text     strings.Builder
		suppress bool
	)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		chunk, ok, err := response.ParseLine(scanner.Text())
		if err != nil || !ok {
			continue
		}

		switch {
		case chunk.IsThinking():
			if chunk.Delta.Thinking == "" {
				continue
			}
			if out.Send(ctx, protocol.Thinking(chunk.Delta.Thinking)) != nil {
				return
			}

		case chunk.IsText():
			delta := chunk.Delta.Text
			if text.Len() == 0 && strings.HasPrefix(strings.TrimLeft(delta, " \t\r\n"), "{") {
				suppress = true
			}
			text.WriteString(delta)
			if suppress || delta == "" {
				continue
			}
			if out.Send(ctx, protocol.Text(delta)) != nil {
				return
			}

		case chunk.Type == response.TypeMessageStop:
			out.Send(ctx, s.finish(ctx, document, text.String(), suppress))
			return

		case chunk.Type == response.TypeError:
			out.Send(ctx, protocol.Failure(chunk.ErrorMessage()))
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		out.Send(ctx, protocol.Failure(fmt.Sprintf("Stream error: %v", err)))
		return
	}

	// Body ended without message_stop.
	out.Send(ctx, s.finish(ctx, document, text.String(), suppress))
}

// finish builds the terminal event for a completed response.
func (s *AnthropicStreamer) finish(ctx context.Context, document, text string, suppressed bool) protocol.Event {
	env, ok := response.ParseEditEnvelope(text)
	if !ok {
		if suppressed {
			// Looked like JSON but was not an envelope; show what was withheld.
			return protocol.Done(text, nil)
		}
		return protocol.Done("", nil)
	}

	if document != "" {
		if err := s.applyEdits(ctx, document, env.Edits); err != nil {
			return protocol.Failure(err.Error())
		}
	}
	return protocol.Done(env.Explanation, env.Changes)
}

func (s *AnthropicStreamer) applyEdits(ctx context.Context, document string, edits []response.Edit) error {
	content, err := s.workspace.Read(document)
	if err != nil {
		return fmt.Errorf("failed to apply edits: %w", err)
	}

	updated, applied := ApplyEdits(content, edits)
	if err := s.workspace.Write(document, updated); err != nil {
		return fmt.Errorf("failed to apply edits: %w", err)
	}

	s.emit(ctx, EventEditsApplied, observability.LevelInfo, map[string]any{
		"document": document,
		"edits":    len(edits),
		"applied":  applied,
	})
	return nil
}

func (s *AnthropicStreamer) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "agent.AnthropicStreamer",
		Data:      data,
	})
}
