package stub

import (
	"encoding/json"
	"log"

	"skillswap/internal/chat"
)

// frame is a payload bound for every connection watching one chat.
type frame struct {
	chatID  int
	payload []byte
}

// Hub routes live events to the connections of each chat. All room state is
// owned by the Run goroutine; handlers talk to it through channels only.
type Hub struct {
	rooms      map[int]map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan frame
	store      *store
}

func NewHub(store *store) *Hub {
	return &Hub{
		rooms:      make(map[int]map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan frame),
		store:      store,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			room := h.rooms[client.chatID]
			if room == nil {
				room = make(map[*wsClient]bool)
				h.rooms[client.chatID] = room
			}
			room[client] = true

		case client := <-h.unregister:
			if room, ok := h.rooms[client.chatID]; ok {
				if room[client] {
					delete(room, client)
					close(client.send)
				}
				if len(room) == 0 {
					delete(h.rooms, client.chatID)
				}
			}

		case f := <-h.broadcast:
			for client := range h.rooms[f.chatID] {
				select {
				case client.send <- f.payload:
				default:
					// Slow consumer: drop it rather than block the hub.
					delete(h.rooms[f.chatID], client)
					close(client.send)
				}
			}
		}
	}
}

// BroadcastMessage fans a stored message out to its chat as a
// {"type":"message",...} event. Used by both the websocket read path and the
// REST message endpoint, so a REST-sent message still reaches live viewers.
func (h *Hub) BroadcastMessage(msg chat.Message) {
	payload, err := json.Marshal(struct {
		Type string `json:"type"`
		chat.Message
	}{Type: "message", Message: msg})
	if err != nil {
		log.Printf("marshal broadcast: %v", err)
		return
	}
	h.broadcast <- frame{chatID: msg.ChatID, payload: payload}
}
