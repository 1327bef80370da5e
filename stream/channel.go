package stream

import (
	"context"
	"sync"
)

// Channel is a context-aware queue between an event producer (a streaming
// transport) and the single Assembler consuming it. Send never blocks past
// cancellation of either the channel's context or the caller's.
type Channel[T any] struct {
	channel chan T
	context context.Context
	once    sync.Once
}

func NewChannel[T any](ctx context.Context, bufferSize int) *Channel[T] {
	return &Channel[T]{
		channel: make(chan T, bufferSize),
		context: ctx,
	}
}

func (c *Channel[T]) Send(ctx context.Context, value T) error {
	select {
	case c.channel <- value:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.context.Done():
		return c.context.Err()
	}
}

// Out exposes the receive side for range loops and select statements.
func (c *Channel[T]) Out() <-chan T {
	return c.channel
}

// Close is idempotent. Only the producer may call it.
func (c *Channel[T]) Close() {
	c.once.Do(func() { close(c.channel) })
}
