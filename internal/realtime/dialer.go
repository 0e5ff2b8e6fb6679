package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnClosed is returned when the connection ends before a reply arrives
var ErrConnClosed = errors.New("connection closed")

// Conn is the client side of the realtime protocol
type Conn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	nextID  atomic.Int64
	mu      sync.Mutex
	pending map[string]chan Ack

	events chan Envelope
	done   chan struct{}
}

// Dial connects to a realtime endpoint (ws:// or wss://)
func Dial(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		conn:    ws,
		pending: make(map[string]chan Ack),
		events:  make(chan Envelope, sendBufferSize),
		done:    make(chan struct{}),
	}
	go c.readPump()
	return c, nil
}

// Events returns server-pushed events. Acks are routed to Request instead.
func (c *Conn) Events() <-chan Envelope {
	return c.events
}

// Done is closed once the connection has ended
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Emit sends an event without waiting for a reply
func (c *Conn) Emit(event string, payload any) error {
	return c.write(event, "", payload)
}

// Request sends an event with an id and waits for its ack
func (c *Conn) Request(ctx context.Context, event string, payload any) (Ack, error) {
	id := strconv.FormatInt(c.nextID.Add(1), 10)
	reply := make(chan Ack, 1)

	c.mu.Lock()
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(event, id, payload); err != nil {
		return Ack{}, err
	}

	select {
	case ack := <-reply:
		return ack, nil
	case <-c.done:
		return Ack{}, ErrConnClosed
	case <-ctx.Done():
		return Ack{}, ctx.Err()
	}
}

// Close ends the connection
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Conn) write(event, id string, payload any) error {
	var data json.RawMessage
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return err
		}
	}
	msg, err := json.Marshal(Envelope{Event: event, ID: id, Payload: data})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *Conn) readPump() {
	defer close(c.done)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := DecodeEnvelope(message)
		if err != nil {
			continue
		}

		if env.Event == EventAck && env.ID != "" {
			c.deliverAck(env)
			continue
		}

		select {
		case c.events <- *env:
		default:
			// Nobody is draining events; drop rather than stall acks
		}
	}
}

func (c *Conn) deliverAck(env *Envelope) {
	var ack Ack
	if err := json.Unmarshal(env.Payload, &ack); err != nil {
		return
	}

	c.mu.Lock()
	reply, ok := c.pending[env.ID]
	c.mu.Unlock()
	if ok {
		reply <- ack
	}
}
