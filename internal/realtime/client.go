package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Buffer size for outgoing events
const sendBufferSize = 256

// Client is one subscriber connection. It may be registered in several hubs at once.
// The send channel is never closed; Done signals the end of the connection instead.
type Client struct {
	id          string
	send        chan Event
	done        chan struct{}
	closeOnce   sync.Once
	connectedAt time.Time
}

// NewClient creates a new client with a random id
func NewClient() *Client {
	return &Client{
		id:          uuid.NewString(),
		send:        make(chan Event, sendBufferSize),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
}

// ID returns the connection id
func (c *Client) ID() string {
	return c.id
}

// Events returns the outbound queue, read by the transport's writer
func (c *Client) Events() <-chan Event {
	return c.send
}

// Done is closed when the client is closed
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send queues ev without blocking. Returns false if the buffer is full or the client is closed.
func (c *Client) Send(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Deliver queues ev, waiting for buffer space. Used for direct replies that must not be dropped.
func (c *Client) Deliver(ctx context.Context, ev Event) bool {
	select {
	case c.send <- ev:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close marks the client as finished. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
