package chat

import (
	"encoding/json"
	"fmt"
)

// Event is one inbound frame on the live channel. It is a closed set:
// ConnectionEvent, MessageEvent or ErrorEvent.
type Event interface {
	isEvent()
}

// ConnectionEvent is the server's ack right after the handshake. It carries
// no message; receiving one clears any surfaced error.
type ConnectionEvent struct {
	Status string `json:"status"`
	ChatID int    `json:"chat_id"`
	UserID int    `json:"user_id"`
}

// MessageEvent delivers one fully-formed message. The server is the sole
// source of ordering for live events.
type MessageEvent struct {
	Message
}

// ErrorEvent surfaces a server-side problem. The connection stays open
// unless the server also closes it.
type ErrorEvent struct {
	Text string `json:"message"`
}

func (ConnectionEvent) isEvent() {}
func (MessageEvent) isEvent()    {}
func (ErrorEvent) isEvent()      {}

// outboundMessage is the only frame this client sends.
type outboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// decodeEvent maps a raw frame onto the event variants by its type
// discriminator.
func decodeEvent(raw []byte) (Event, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch probe.Type {
	case "connection":
		var ev ConnectionEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode connection event: %w", err)
		}
		return ev, nil
	case "message":
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("decode message event: %w", err)
		}
		return MessageEvent{Message: msg}, nil
	case "error":
		var ev ErrorEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("decode error event: %w", err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", probe.Type)
	}
}
