package stream_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/observability"
	"github.com/tailored-agentic-units/spicy/session"
	"github.com/tailored-agentic-units/spicy/stream"
)

// recordingTarget holds one placeholder and counts store updates.
type recordingTarget struct {
	mu      sync.Mutex
	msg     session.ChatMessage
	updates int
}

func newRecordingTarget() *recordingTarget {
	return &recordingTarget{msg: session.NewPlaceholder()}
}

func (r *recordingTarget) Update(fn func(msg *session.ChatMessage)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.msg)
	r.updates++
	return true
}

func (r *recordingTarget) snapshot() (session.ChatMessage, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msg.Clone(), r.updates
}

func feed(events ...protocol.Event) <-chan protocol.Event {
	ch := make(chan protocol.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	return ch
}

func TestAssembler_Run_Done(t *testing.T) {
	target := newRecordingTarget()
	obs := observability.NewRecorder()
	a := stream.NewAssembler(target, stream.WithObserver(obs), stream.WithRequestID("req-1"))

	result := a.Run(context.Background(), feed(
		protocol.Text("Low"),
		protocol.Text("ered."),
		protocol.Done("", nil),
	))

	if result.Status != stream.StatusDone {
		t.Errorf("status = %v, want done", result.Status)
	}
	if result.Events != 3 {
		t.Errorf("events = %d, want 3", result.Events)
	}

	msg, updates := target.snapshot()
	if msg.Content != "Lowered." || msg.IsStreaming {
		t.Errorf("got %+v, want terminal turn with content Lowered.", msg)
	}
	if updates != 3 {
		t.Errorf("got %d store updates, want one per event (3)", updates)
	}

	events := obs.Events()
	if len(events) != 3 || events[2].Type != stream.EventComplete {
		t.Fatalf("observer events = %v", events)
	}
	if events[2].Data["request_id"] != "req-1" {
		t.Errorf("request id not attached: %v", events[2].Data)
	}
}

func TestAssembler_Run_StopsAtTerminal(t *testing.T) {
	target := newRecordingTarget()
	a := stream.NewAssembler(target)

	events := feed(
		protocol.Text("answer"),
		protocol.Failure("overloaded"),
		protocol.Text("late"),
	)
	result := a.Run(context.Background(), events)

	if result.Status != stream.StatusError {
		t.Errorf("status = %v, want error", result.Status)
	}
	msg, _ := target.snapshot()
	if msg.Content != "Error: overloaded" {
		t.Errorf("content = %q", msg.Content)
	}
	if len(events) != 1 {
		t.Errorf("Run consumed past the terminal event, %d left", len(events))
	}

	if _, terminal := a.Apply(context.Background(), protocol.Text("later")); !terminal {
		t.Error("Apply after termination should report terminal")
	}
	msg, _ = target.snapshot()
	if msg.Content != "Error: overloaded" {
		t.Errorf("late event mutated the turn: %q", msg.Content)
	}
}

func TestAssembler_Run_ClosedWithoutTerminal(t *testing.T) {
	target := newRecordingTarget()
	a := stream.NewAssembler(target)

	ch := make(chan protocol.Event, 1)
	ch <- protocol.Text("partial")
	close(ch)

	result := a.Run(context.Background(), ch)
	if result.Status != stream.StatusFailed {
		t.Errorf("status = %v, want failed", result.Status)
	}
	if !errors.Is(result.Err, stream.ErrStreamClosed) {
		t.Errorf("err = %v, want ErrStreamClosed", result.Err)
	}

	msg, _ := target.snapshot()
	if msg.Content != "Error: "+stream.ErrStreamClosed.Error() || msg.IsStreaming {
		t.Errorf("got %+v", msg)
	}
}

func TestAssembler_Run_ContextCancelled(t *testing.T) {
	target := newRecordingTarget()
	a := stream.NewAssembler(target)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result := a.Run(ctx, make(chan protocol.Event))
	if result.Status != stream.StatusFailed {
		t.Errorf("status = %v, want failed", result.Status)
	}
	if !errors.Is(result.Err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", result.Err)
	}
}

func TestAssembler_Fail_TransportRejection(t *testing.T) {
	target := newRecordingTarget()
	a := stream.NewAssembler(target)

	result := a.Fail(context.Background(), errors.New("API request failed: connection refused"))
	if result.Status != stream.StatusFailed {
		t.Errorf("status = %v, want failed", result.Status)
	}

	msg, _ := target.snapshot()
	if msg.Content != "Error: API request failed: connection refused" {
		t.Errorf("content = %q", msg.Content)
	}
	if msg.IsStreaming || msg.IsLoading {
		t.Errorf("turn should be terminal: %+v", msg)
	}

	again := a.Fail(context.Background(), errors.New("second"))
	if again.Err == nil || again.Err.Error() != "API request failed: connection refused" {
		t.Errorf("second Fail changed the result: %v", again.Err)
	}
}

func TestAssembler_MissingPlaceholder(t *testing.T) {
	gone := stream.TargetFunc(func(func(*session.ChatMessage)) bool { return false })
	a := stream.NewAssembler(gone)

	result := a.Run(context.Background(), feed(protocol.Text("x"), protocol.Done("", nil)))
	if result.Status != stream.StatusDone {
		t.Errorf("status = %v, want done", result.Status)
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[stream.Status]string{
		stream.StatusDone:   "done",
		stream.StatusError:  "error",
		stream.StatusFailed: "failed",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
