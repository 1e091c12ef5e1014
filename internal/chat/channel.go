package chat

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second    // Time allowed to write a frame to the server.
	pongWait     = 60 * time.Second    // Time allowed between reads before the connection is considered dead.
	pingPeriod   = (pongWait * 9) / 10 // Keep-alive ping interval. Must be less than pongWait.
	maxFrameSize = 8192                // Inbound frames are small JSON events.
)

// State is the live-channel lifecycle. closed is terminal; errored
// transitions to closed once the socket is released.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Handlers are the three callbacks a live channel reports through. All are
// optional; events arrive on the channel's read goroutine, one at a time.
type Handlers struct {
	OnEvent func(Event)
	OnError func(error) // transport-level failures, not server error frames
	OnClose func()
}

// Channel is one live streaming connection to a chat. It is created open by
// Dial and cannot be reopened; a Session handles redialing.
type Channel struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	once    sync.Once

	stateMu sync.Mutex
	state   State

	handlers Handlers
}

// Dial establishes the live channel and starts its read pump. The returned
// channel is already in state open.
func Dial(ctx context.Context, url string, handlers Handlers) (*Channel, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	c := &Channel{
		conn:     conn,
		state:    StateOpen,
		handlers: handlers,
	}

	go c.readPump()
	go c.pingLoop()
	return c, nil
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Channel) setState(s State) {
	c.stateMu.Lock()
	// closed is terminal
	if c.state != StateClosed {
		c.state = s
	}
	c.stateMu.Unlock()
}

// Send writes one message frame. Fire-and-forget: the authoritative copy
// comes back as a MessageEvent; nothing is appended locally here.
func (c *Channel) Send(text string) error {
	if state := c.State(); state != StateOpen {
		return &ChannelNotReadyError{State: state}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(outboundMessage{Type: "message", Text: text}); err != nil {
		return &ChannelNotReadyError{State: c.State()}
	}
	return nil
}

// Close releases the socket. Idempotent: the underlying connection is
// released exactly once no matter how many lifecycle paths call it.
func (c *Channel) Close() {
	c.once.Do(func() {
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		c.conn.Close()

		c.stateMu.Lock()
		c.state = StateClosed
		c.stateMu.Unlock()
	})
}

// readPump decodes inbound frames into events until the socket dies. It owns
// all reads on the connection.
func (c *Channel) readPump() {
	defer func() {
		c.Close()
		if c.handlers.OnClose != nil {
			c.handlers.OnClose()
		}
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && c.State() == StateOpen {
				c.setState(StateError)
				if c.handlers.OnError != nil {
					c.handlers.OnError(err)
				}
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		ev, err := decodeEvent(raw)
		if err != nil {
			if c.handlers.OnError != nil {
				c.handlers.OnError(err)
			}
			continue
		}
		if c.handlers.OnEvent != nil {
			c.handlers.OnEvent(ev)
		}
	}
}

// pingLoop keeps the connection alive through idle stretches and NAT
// timeouts.
func (c *Channel) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if c.State() != StateOpen {
			return
		}
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := c.conn.WriteMessage(websocket.PingMessage, nil)
		c.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}
