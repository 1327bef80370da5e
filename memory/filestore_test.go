package memory_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/memory"
)

func TestFileStore_Layout(t *testing.T) {
	root := t.TempDir()
	clock := func() time.Time { return time.UnixMilli(1_700_000_000_123) }
	store := memory.NewFileStore(root, memory.WithClock(clock))

	if err := store.Save(context.Background(), "filters/low pass.asc", sampleSession("s1", "tune it")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	dir := filepath.Join(root, ".spicy", "chats", "filters_low_pass.asc")
	index := readJSON[protocol.SessionIndex](t, filepath.Join(dir, "sessions.json"))
	if len(index.Sessions) != 1 {
		t.Fatalf("index has %d sessions, want 1", len(index.Sessions))
	}
	meta := index.Sessions[0]
	if meta.CreatedAt != "1700000000123" || meta.UpdatedAt != "1700000000123" {
		t.Errorf("timestamps = %s/%s, want millisecond strings", meta.CreatedAt, meta.UpdatedAt)
	}
	if meta.MessageCount != 3 || meta.Title != "tune it" {
		t.Errorf("meta = %+v", meta)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "s1.json"))
	if err != nil {
		t.Fatalf("transcript file missing: %v", err)
	}
	if strings.Count(string(raw), `"thinking"`) != 1 || strings.Count(string(raw), `"changes"`) != 1 {
		t.Errorf("optional keys should appear only where set:\n%s", raw)
	}
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	root := t.TempDir()
	store := memory.NewFileStore(root)
	store.Save(context.Background(), "amp.asc", sampleSession("s1", "x"))

	entries, err := os.ReadDir(filepath.Join(root, ".spicy", "chats", "amp.asc"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFileStore_CorruptIndex(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".spicy", "chats", "amp.asc")
	writeTestFile(t, dir, "sessions.json", "{not json")

	store := memory.NewFileStore(root)
	sessions, err := store.List(context.Background(), "amp.asc")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("corrupt index should read as empty, got %d", len(sessions))
	}

	if err := store.Save(context.Background(), "amp.asc", sampleSession("s1", "x")); err != nil {
		t.Fatalf("Save() over corrupt index error = %v", err)
	}
	sessions, _ = store.List(context.Background(), "amp.asc")
	if len(sessions) != 1 {
		t.Errorf("got %d sessions after save, want 1", len(sessions))
	}
}

func TestFileStore_CorruptTranscript(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, ".spicy", "chats", "amp.asc"), "s1.json", "[]]")

	store := memory.NewFileStore(root)
	_, err := store.Load(context.Background(), "amp.asc", "s1")
	if err == nil {
		t.Fatal("Load() of corrupt transcript should fail")
	}
}

func TestSanitizeDocument(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"amp.asc", "amp.asc"},
		{"filters/low pass.asc", "filters_low_pass.asc"},
		{`C:\work\a*b?.asc`, "C__work_a_b_.asc"},
		{`"q"<x>|y`, "_q__x__y"},
	}

	for _, tt := range tests {
		if got := memory.SanitizeDocument(tt.in); got != tt.want {
			t.Errorf("SanitizeDocument(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTimestamp(t *testing.T) {
	if got := memory.Timestamp(time.UnixMilli(42)); got != "42" {
		t.Errorf("Timestamp() = %q, want %q", got, "42")
	}

	parsed, err := memory.ParseTimestamp("1700000000123")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if parsed.UnixMilli() != 1700000000123 {
		t.Errorf("ParseTimestamp() = %d", parsed.UnixMilli())
	}
	if _, err := memory.ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error for non-numeric timestamp")
	}
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readJSON[T any](t *testing.T, path string) T {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", path, err)
	}
	return v
}
