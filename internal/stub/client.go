package stub

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"skillswap/internal/chat"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stub serves local dev and tests only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is the middleman between one websocket connection and the hub.
type wsClient struct {
	hub      *Hub
	server   *Server
	conn     *websocket.Conn
	send     chan []byte
	chatID   int
	userID   int
	username string
}

// handleChatWS upgrades the connection for one chat after the same
// existence/participant checks as the REST endpoints.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	userID, username := identity(r)

	chatID, err := strconv.Atoi(chi.URLParam(r, "chatID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "chat_not_found", "chat not found")
		return
	}
	c, ok := s.store.chatByID(chatID)
	if !ok {
		writeError(w, http.StatusNotFound, "chat_not_found", "chat not found")
		return
	}
	if c.User1ID != userID && c.User2ID != userID {
		writeError(w, http.StatusForbidden, "chat_access_denied", "not a participant")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &wsClient{
		hub:      s.hub,
		server:   s,
		conn:     conn,
		send:     make(chan []byte, 256),
		chatID:   chatID,
		userID:   userID,
		username: username,
	}
	client.hub.register <- client

	// Ack the connection before any message can flow.
	client.sendEvent(map[string]any{
		"type":    "connection",
		"status":  "connected",
		"chat_id": chatID,
		"user_id": userID,
	})

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) sendEvent(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("marshal event: %v", err)
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// readPump consumes inbound frames: validates, stores and broadcasts each
// message, or answers with an error event.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read: %v", err)
			}
			return
		}

		var inbound struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &inbound); err != nil || inbound.Type != "message" {
			c.sendEvent(map[string]string{"type": "error", "message": "Invalid message"})
			continue
		}

		text := strings.TrimSpace(inbound.Text)
		if text == "" {
			c.sendEvent(map[string]string{"type": "error", "message": "Message text cannot be empty"})
			continue
		}
		if utf8.RuneCountInString(text) > chat.MaxMessageLen {
			c.sendEvent(map[string]string{"type": "error", "message": "Invalid message"})
			continue
		}

		msg := c.server.store.createMessage(c.chatID, c.userID, c.username, text)
		c.hub.BroadcastMessage(msg)
	}
}

// writePump flushes the send channel to the socket and keeps the
// connection alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
