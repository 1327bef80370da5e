package agent_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/spicy/agent"
	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/workspace"
)

const ampSchematic = "Version 4\nSYMATTR Value 10k\n"

func sse(payloads ...string) string {
	var b strings.Builder
	for _, p := range payloads {
		var head struct {
			Type string `json:"type"`
		}
		json.Unmarshal([]byte(p), &head)
		fmt.Fprintf(&b, "event: %s\ndata: %s\n\n", head.Type, p)
	}
	return b.String()
}

func thinkingDelta(s string) string {
	return fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":%q}}`, s)
}

func textDelta(s string) string {
	return fmt.Sprintf(`{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":%q}}`, s)
}

const messageStop = `{"type":"message_stop"}`

type capturedRequest struct {
	header http.Header
	body   map[string]any
}

type fakeAPI struct {
	server *httptest.Server
	status int
	body   string

	mu       sync.Mutex
	requests []capturedRequest
}

func newFakeAPI(t *testing.T, status int, body string) *fakeAPI {
	api := &fakeAPI{status: status, body: body}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		json.Unmarshal(raw, &decoded)

		api.mu.Lock()
		api.requests = append(api.requests, capturedRequest{header: r.Header.Clone(), body: decoded})
		api.mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(api.status)
		io.WriteString(w, api.body)
	}))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) captured() []capturedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]capturedRequest(nil), a.requests...)
}

func newTestWorkspace(t *testing.T) (*workspace.Workspace, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "amp.asc"), []byte(ampSchematic), 0o644); err != nil {
		t.Fatal(err)
	}
	return workspace.New(dir), dir
}

func newStreamer(url string, ws *workspace.Workspace) *agent.AnthropicStreamer {
	cfg := agent.Config{APIKey: "test-key", BaseURL: url}
	return agent.NewAnthropicStreamer(&cfg, ws)
}

func collect(t *testing.T, events <-chan protocol.Event) []protocol.Event {
	t.Helper()
	var got []protocol.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("stream did not close; got %+v", got)
		}
	}
}

func chatRequest(message string) protocol.ChatRequest {
	return protocol.ChatRequest{
		Message:  message,
		Document: "amp.asc",
		History:  []protocol.Message{protocol.NewMessage(protocol.RoleUser, message)},
	}
}

func TestAnthropicStreamer_AnalysisMode(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, sse(
		`{"type":"message_start","message":{"id":"msg_1"}}`,
		thinkingDelta("C1 and R1 "),
		thinkingDelta("set fc."),
		textDelta("Low"),
		textDelta("ered."),
		messageStop,
	))
	ws, _ := newTestWorkspace(t)

	events, err := newStreamer(api.server.URL, ws).StreamChat(context.Background(), chatRequest("lower the cutoff frequency"))
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	got := collect(t, events)
	want := []protocol.Event{
		protocol.Thinking("C1 and R1 "),
		protocol.Thinking("set fc."),
		protocol.Text("Low"),
		protocol.Text("ered."),
		protocol.Done("", nil),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %+v, want %+v", got, want)
	}

	reqs := api.captured()
	if len(reqs) != 1 {
		t.Fatalf("got %d API requests, want 1", len(reqs))
	}
	req := reqs[0]
	if req.header.Get("x-api-key") != "test-key" || req.header.Get("anthropic-version") == "" {
		t.Errorf("headers = %v", req.header)
	}
	if req.body["stream"] != true || req.body["model"] != agent.DefaultModel {
		t.Errorf("body = %v", req.body)
	}
	if thinking, _ := req.body["thinking"].(map[string]any); thinking["type"] != agent.DefaultThinking {
		t.Errorf("thinking = %v", req.body["thinking"])
	}

	messages, _ := req.body["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1 (history turn replaced by file context)", len(messages))
	}
	last, _ := messages[0].(map[string]any)
	wantContent := "Current file: amp.asc\n\n1| Version 4\n2| SYMATTR Value 10k\n\nlower the cutoff frequency"
	if last["content"] != wantContent {
		t.Errorf("user content = %q, want %q", last["content"], wantContent)
	}
}

func TestAnthropicStreamer_EditMode(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, sse(
		thinkingDelta("line 2 holds the value"),
		textDelta(`{"edits":[{"start":2,"end":2,"replacement":"SYMATTR Value 24k"}],`),
		textDelta(`"explanation":"Changed R1 to 24k","changes":[{"component":"R1","filename":"amp.asc","description":"10k -> 24k"}]}`),
		messageStop,
	))
	ws, dir := newTestWorkspace(t)

	events, err := newStreamer(api.server.URL, ws).StreamChat(context.Background(), chatRequest("make R1 24k"))
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	got := collect(t, events)
	want := []protocol.Event{
		protocol.Thinking("line 2 holds the value"),
		protocol.Done("Changed R1 to 24k", []protocol.FileChange{
			{Component: "R1", Filename: "amp.asc", Description: "10k -> 24k"},
		}),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %+v, want %+v", got, want)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "amp.asc"))
	if string(data) != "Version 4\nSYMATTR Value 24k\n" {
		t.Errorf("file content = %q", data)
	}
}

func TestAnthropicStreamer_EnvelopeAfterReasoning(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, sse(
		textDelta("Updating the value. "),
		textDelta(`{"edits":[{"start":1,"end":1,"replacement":"Version 4"}]}`),
		messageStop,
	))
	ws, _ := newTestWorkspace(t)

	events, _ := newStreamer(api.server.URL, ws).StreamChat(context.Background(), chatRequest("touch it"))
	got := collect(t, events)

	last := got[len(got)-1]
	if last.Type != protocol.EventDone || last.Explanation != "Changes applied." {
		t.Errorf("terminal = %+v, want done with default explanation", last)
	}
	if got[0].Type != protocol.EventText {
		t.Errorf("leading prose should stream as text, got %+v", got[0])
	}
}

func TestAnthropicStreamer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "api error event",
			status:  http.StatusOK,
			body:    sse(textDelta("Lo"), `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`),
			wantMsg: "Overloaded",
		},
		{
			name:    "api error without message",
			status:  http.StatusOK,
			body:    sse(`{"type":"error","error":{"type":"api_error"}}`),
			wantMsg: "Unknown API error",
		},
		{
			name:    "non-2xx status",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"invalid x-api-key"}}`,
			wantMsg: "(401)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, tt.status, tt.body)
			ws, _ := newTestWorkspace(t)

			events, err := newStreamer(api.server.URL, ws).StreamChat(context.Background(), chatRequest("hi"))
			if err != nil {
				t.Fatalf("StreamChat() error = %v", err)
			}
			got := collect(t, events)
			last := got[len(got)-1]
			if last.Type != protocol.EventError || !strings.Contains(last.Message, tt.wantMsg) {
				t.Errorf("terminal = %+v, want error containing %q", last, tt.wantMsg)
			}
		})
	}
}

func TestAnthropicStreamer_EndWithoutStop(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, sse(textDelta("partial")))
	ws, _ := newTestWorkspace(t)

	events, _ := newStreamer(api.server.URL, ws).StreamChat(context.Background(), chatRequest("hi"))
	got := collect(t, events)

	want := []protocol.Event{protocol.Text("partial"), protocol.Done("", nil)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %+v, want %+v", got, want)
	}
}

func TestAnthropicStreamer_Preconditions(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, sse(messageStop))

	t.Run("missing api key", func(t *testing.T) {
		ws, _ := newTestWorkspace(t)
		cfg := agent.Config{BaseURL: api.server.URL, APIKeyEnv: "SPICY_TEST_UNSET_KEY"}
		s := agent.NewAnthropicStreamer(&cfg, ws, agent.WithGetenv(func(string) string { return "" }))

		events, err := s.StreamChat(context.Background(), chatRequest("hi"))
		if err != nil {
			t.Fatalf("StreamChat() error = %v", err)
		}
		got := collect(t, events)
		if len(got) != 1 || got[0].Message != agent.ErrMissingAPIKey.Error() {
			t.Errorf("events = %+v", got)
		}
	})

	t.Run("api key from environment", func(t *testing.T) {
		ws, _ := newTestWorkspace(t)
		cfg := agent.Config{BaseURL: api.server.URL}
		s := agent.NewAnthropicStreamer(&cfg, ws, agent.WithGetenv(func(key string) string {
			if key == agent.DefaultAPIKeyEnv {
				return "env-key"
			}
			return ""
		}))

		events, _ := s.StreamChat(context.Background(), chatRequest("hi"))
		collect(t, events)

		reqs := api.captured()
		if got := reqs[len(reqs)-1].header.Get("x-api-key"); got != "env-key" {
			t.Errorf("x-api-key = %q, want %q", got, "env-key")
		}
	})

	t.Run("no working directory", func(t *testing.T) {
		events, _ := newStreamer(api.server.URL, workspace.New("")).StreamChat(context.Background(), chatRequest("hi"))
		got := collect(t, events)
		if len(got) != 1 || got[0].Message != workspace.ErrNoWorkingDirectory.Error() {
			t.Errorf("events = %+v", got)
		}
	})

	t.Run("unreadable document", func(t *testing.T) {
		ws, _ := newTestWorkspace(t)
		req := chatRequest("hi")
		req.Document = "missing.asc"

		events, _ := newStreamer(api.server.URL, ws).StreamChat(context.Background(), req)
		got := collect(t, events)
		if len(got) != 1 || got[0].Type != protocol.EventError {
			t.Errorf("events = %+v", got)
		}
	})
}

func TestAnthropicStreamer_TransportFailure(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, "")
	url := api.server.URL
	api.server.Close()

	ws, _ := newTestWorkspace(t)
	if _, err := newStreamer(url, ws).StreamChat(context.Background(), chatRequest("hi")); err == nil {
		t.Error("StreamChat() to a closed server should return an error")
	}
}
