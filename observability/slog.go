package observability

import (
	"context"
	"log/slog"
)

// SlogObserver emits events to a slog.Logger. The event type becomes the log
// message; Source and the Data keys, in sorted order, become attributes.
// Error values are logged by their message. Events below the handler's level
// are dropped before any attribute is built.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver that emits to the given logger.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := event.Level.SlogLevel()
	if !o.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(event.Data)+1)
	attrs = append(attrs, slog.String("source", event.Source))
	for _, k := range event.Keys() {
		switch v := event.Data[k].(type) {
		case error:
			attrs = append(attrs, slog.String(k, v.Error()))
		default:
			attrs = append(attrs, slog.Any(k, v))
		}
	}

	o.logger.LogAttrs(ctx, level, string(event.Type), attrs...)
}
