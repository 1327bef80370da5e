// Package mock provides Streamer implementations for tests: a scripted
// streamer that replays a fixed event sequence, and a manual streamer that
// hands every request to the test to drive event by event.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/tailored-agentic-units/spicy/core/protocol"
)

// Option configures a Streamer.
type Option func(*Streamer)

// WithEvents sets the events replayed for every request.
func WithEvents(events ...protocol.Event) Option {
	return func(s *Streamer) { s.events = events }
}

// WithError makes every request fail before dispatch.
func WithError(err error) Option {
	return func(s *Streamer) { s.err = err }
}

// WithDelay pauses before each event.
func WithDelay(d time.Duration) Option {
	return func(s *Streamer) { s.delay = d }
}

// Streamer replays a scripted event sequence and records requests.
type Streamer struct {
	events []protocol.Event
	err    error
	delay  time.Duration

	mu       sync.Mutex
	requests []protocol.ChatRequest
}

// NewStreamer creates a Streamer that by default answers with done{}.
func NewStreamer(opts ...Option) *Streamer {
	s := &Streamer{events: []protocol.Event{protocol.Done("", nil)}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Streamer) StreamChat(ctx context.Context, req protocol.ChatRequest) (<-chan protocol.Event, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	out := make(chan protocol.Event)
	go func() {
		defer close(out)
		for _, ev := range s.events {
			if s.delay > 0 {
				select {
				case <-time.After(s.delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Requests returns the requests received so far.
func (s *Streamer) Requests() []protocol.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.ChatRequest(nil), s.requests...)
}

// Call is one request received by a ManualStreamer.
type Call struct {
	Request protocol.ChatRequest

	ctx    context.Context
	events chan protocol.Event
	once   sync.Once
}

// Send delivers ev to the consumer. It returns false when the consumer has
// stopped listening.
func (c *Call) Send(ev protocol.Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// Close ends the stream without a terminal event.
func (c *Call) Close() {
	c.once.Do(func() { close(c.events) })
}

// ManualStreamer hands each request to the test through Calls.
type ManualStreamer struct {
	calls chan *Call
}

func NewManualStreamer() *ManualStreamer {
	return &ManualStreamer{calls: make(chan *Call, 16)}
}

func (s *ManualStreamer) StreamChat(ctx context.Context, req protocol.ChatRequest) (<-chan protocol.Event, error) {
	call := &Call{
		Request: req,
		ctx:     ctx,
		events:  make(chan protocol.Event),
	}
	s.calls <- call
	return call.events, nil
}

// Calls delivers requests in the order they were made.
func (s *ManualStreamer) Calls() <-chan *Call {
	return s.calls
}

// Next waits for the next request, or returns nil after timeout.
func (s *ManualStreamer) Next(timeout time.Duration) *Call {
	select {
	case call := <-s.calls:
		return call
	case <-time.After(timeout):
		return nil
	}
}
