package stream_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/stream"
)

func TestChannel_SendOut(t *testing.T) {
	ch := stream.NewChannel[protocol.Event](context.Background(), 2)

	if err := ch.Send(context.Background(), protocol.Text("a")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case ev := <-ch.Out():
		if ev.Content != "a" {
			t.Errorf("got %q, want %q", ev.Content, "a")
		}
	default:
		t.Fatal("buffered event not available on Out")
	}
}

func TestChannel_Send_CancelledContext(t *testing.T) {
	ch := stream.NewChannel[protocol.Event](context.Background(), 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := ch.Send(ctx, protocol.Text("blocked")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send err = %v, want deadline exceeded", err)
	}
}

func TestChannel_Send_OwnerCancelled(t *testing.T) {
	owner, cancel := context.WithCancel(context.Background())
	ch := stream.NewChannel[protocol.Event](owner, 0)
	cancel()

	if err := ch.Send(context.Background(), protocol.Text("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Send err = %v, want canceled", err)
	}
}

func TestChannel_Close(t *testing.T) {
	ch := stream.NewChannel[protocol.Event](context.Background(), 1)
	if err := ch.Send(context.Background(), protocol.Done("", nil)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	ch.Close()
	ch.Close()

	var got []protocol.Event
	for ev := range ch.Out() {
		got = append(got, ev)
	}
	if len(got) != 1 || got[0].Type != protocol.EventDone {
		t.Errorf("drained %+v, want the buffered done event", got)
	}
}

func TestChannel_FeedsAssembler(t *testing.T) {
	ch := stream.NewChannel[protocol.Event](context.Background(), 4)
	go func() {
		defer ch.Close()
		ch.Send(context.Background(), protocol.Text("Raise "))
		ch.Send(context.Background(), protocol.Text("R2."))
		ch.Send(context.Background(), protocol.Done("", nil))
	}()

	target := newRecordingTarget()
	result := stream.NewAssembler(target).Run(context.Background(), ch.Out())

	msg, _ := target.snapshot()
	if result.Status != stream.StatusDone || msg.Content != "Raise R2." {
		t.Errorf("got %v %+v", result.Status, msg)
	}
}
