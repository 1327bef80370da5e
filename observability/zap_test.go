package observability_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tailored-agentic-units/spicy/observability"
)

func TestLevel_ZapLevel(t *testing.T) {
	tests := []struct {
		level observability.Level
		want  zapcore.Level
	}{
		{observability.LevelVerbose, zapcore.DebugLevel},
		{observability.LevelInfo, zapcore.InfoLevel},
		{observability.LevelWarning, zapcore.WarnLevel},
		{observability.LevelError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := tt.level.ZapLevel(); got != tt.want {
				t.Errorf("ZapLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestZapObserver_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := observability.NewZapObserver(zap.New(core))

	obs.OnEvent(context.Background(), observability.Event{
		Type:      "kernel.persist.failed",
		Level:     observability.LevelWarning,
		Timestamp: time.Now(),
		Source:    "kernel.persist",
		Data:      map[string]any{"document": "amp.asc"},
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Message != "kernel.persist.failed" {
		t.Errorf("message = %q", entry.Message)
	}
	if entry.Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["source"] != "kernel.persist" || fields["document"] != "amp.asc" {
		t.Errorf("fields = %v", fields)
	}
}

func TestZapObserver_RespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	obs := observability.NewZapObserver(zap.New(core))

	obs.OnEvent(context.Background(), observability.Event{
		Type:  "stream.delta",
		Level: observability.LevelVerbose,
	})

	if logs.Len() != 0 {
		t.Errorf("verbose event logged at info level: %d entries", logs.Len())
	}
}

func TestNewZapLogger(t *testing.T) {
	for _, mode := range []string{"dev", "production"} {
		logger, err := observability.NewZapLogger(mode)
		if err != nil {
			t.Fatalf("NewZapLogger(%q) error = %v", mode, err)
		}
		if logger == nil {
			t.Fatalf("NewZapLogger(%q) returned nil", mode)
		}
	}
}
