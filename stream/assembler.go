package stream

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/observability"
	"github.com/tailored-agentic-units/spicy/session"
)

// Target is the placeholder turn an Assembler writes into. Update applies fn to
// the placeholder wherever it currently lives and returns false when it no
// longer exists (for example after the transcript was cleared).
type Target interface {
	Update(fn func(msg *session.ChatMessage)) bool
}

// TargetFunc adapts a function to the Target interface.
type TargetFunc func(fn func(msg *session.ChatMessage)) bool

func (f TargetFunc) Update(fn func(msg *session.ChatMessage)) bool {
	return f(fn)
}

// Status is how a request ended.
type Status int

const (
	StatusDone Status = iota
	StatusError
	StatusFailed // transport failure: no terminal event was delivered
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	default:
		return "failed"
	}
}

// Result summarizes one assembled request.
type Result struct {
	Status Status
	Events int   // Events applied, the terminal one included.
	Err    error // Transport failure, set only for StatusFailed.
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithObserver routes assembler events to o.
func WithObserver(o observability.Observer) Option {
	return func(a *Assembler) { a.observer = o }
}

// WithRequestID tags emitted events with the request they belong to.
func WithRequestID(id string) Option {
	return func(a *Assembler) { a.requestID = id }
}

// Assembler applies the events of one in-flight request to one placeholder.
// It is single use: once a terminal event or failure has been applied, later
// events are never written.
type Assembler struct {
	target    Target
	observer  observability.Observer
	requestID string
	events    int
	finished  bool
	result    Result
}

// NewAssembler creates an Assembler writing into target.
func NewAssembler(target Target, opts ...Option) *Assembler {
	a := &Assembler{
		target:   target,
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run drains events until a terminal event arrives, the channel closes, or ctx
// is cancelled. A closed channel or cancelled context is treated as a transport
// failure. Run never waits on events after it returns, so the producer must
// also watch a context the caller cancels once Run is done.
func (a *Assembler) Run(ctx context.Context, events <-chan protocol.Event) Result {
	for {
		select {
		case <-ctx.Done():
			return a.Fail(ctx, ctx.Err())
		case ev, ok := <-events:
			if !ok {
				return a.Fail(ctx, ErrStreamClosed)
			}
			if result, terminal := a.Apply(ctx, ev); terminal {
				return result
			}
		}
	}
}

// Apply writes a single event. It reports terminal=true once the request has
// ended, including when the event is a late arrival that was ignored.
func (a *Assembler) Apply(ctx context.Context, ev protocol.Event) (Result, bool) {
	if a.finished {
		return a.result, true
	}

	terminal := false
	a.target.Update(func(msg *session.ChatMessage) {
		terminal = Apply(msg, ev)
	})
	a.events++

	if !terminal && !ev.Type.IsTerminal() {
		a.emit(ctx, EventDelta, observability.LevelVerbose, map[string]any{
			"type":  string(ev.Type),
			"bytes": len(ev.Content),
		})
		return Result{}, false
	}

	a.finished = true
	a.result = Result{Status: StatusDone, Events: a.events}
	if ev.Type == protocol.EventError {
		a.result.Status = StatusError
		a.emit(ctx, EventFailed, observability.LevelWarning, map[string]any{
			"events": a.events,
			"error":  ev.Message,
		})
		return a.result, true
	}

	a.emit(ctx, EventComplete, observability.LevelInfo, map[string]any{
		"events":  a.events,
		"changes": len(ev.Changes),
	})
	return a.result, true
}

// Fail terminates the placeholder with a transport failure. It is a no-op once
// the request has already ended.
func (a *Assembler) Fail(ctx context.Context, err error) Result {
	if a.finished {
		return a.result
	}
	a.finished = true

	message := DefaultErrorLabel
	if err != nil {
		message = err.Error()
	}
	a.target.Update(func(msg *session.ChatMessage) {
		Terminate(msg, message)
	})

	a.emit(ctx, EventFailed, observability.LevelWarning, map[string]any{
		"events": a.events,
		"error":  message,
	})
	a.result = Result{Status: StatusFailed, Events: a.events, Err: err}
	return a.result
}

func (a *Assembler) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	if a.requestID != "" {
		data["request_id"] = a.requestID
	}
	a.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "stream.Assembler",
		Data:      data,
	})
}
