package stub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"skillswap/internal/chat"
)

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	var req struct {
		User1ID int `json:"user1_id"`
		User2ID int `json:"user2_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed chat payload")
		return
	}
	if req.User1ID == req.User2ID {
		writeError(w, http.StatusBadRequest, "invalid_chat_members", "cannot create a chat with yourself")
		return
	}
	if userID != req.User1ID && userID != req.User2ID {
		writeError(w, http.StatusBadRequest, "chat_access_denied", "caller must be a participant")
		return
	}
	if _, ok := s.store.userByID(req.User1ID); !ok {
		writeError(w, http.StatusBadRequest, "invalid_chat_members", "unknown participant")
		return
	}
	if _, ok := s.store.userByID(req.User2ID); !ok {
		writeError(w, http.StatusBadRequest, "invalid_chat_members", "unknown participant")
		return
	}
	writeJSON(w, http.StatusCreated, s.store.findOrCreateChat(req.User1ID, req.User2ID))
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	limit, offset := pagination(r, 100)

	chats := s.store.chatsForUser(userID)
	writeJSON(w, http.StatusOK, map[string]any{
		"items": paginate(chats, limit, offset),
		"total": len(chats),
	})
}

func (s *Server) handleListChatsWithMessages(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	limit, offset := pagination(r, 50)

	chats := s.store.chatsForUser(userID)
	items := make([]chat.ListItem, 0, len(chats))
	for _, c := range paginate(chats, limit, offset) {
		item := chat.ListItem{Chat: c}
		otherID := c.User1ID
		if otherID == userID {
			otherID = c.User2ID
		}
		if other, ok := s.store.userByID(otherID); ok {
			item.OtherUser = other
		}
		if last, ok := s.store.lastMessage(c.ID); ok {
			item.LastMessage = &last
			at := last.CreatedAt
			item.LastMessageAt = &at
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(chats)})
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	c, status, key := s.chatForRequest(r, userID)
	if c == nil {
		writeError(w, status, key, "chat unavailable")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	c, status, key := s.chatForRequest(r, userID)
	if c == nil {
		writeError(w, status, key, "chat unavailable")
		return
	}

	limit, offset := pagination(r, 100)
	page, total := s.store.messagesPage(c.ID, limit, offset)
	writeJSON(w, http.StatusOK, map[string]any{"items": page, "total": total})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	userID, username := identity(r)
	c, status, key := s.chatForRequest(r, userID)
	if c == nil {
		writeError(w, status, key, "chat unavailable")
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_message", "malformed message payload")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" || utf8.RuneCountInString(text) > chat.MaxMessageLen {
		writeError(w, http.StatusBadRequest, "invalid_message", "message text must be 1-2000 characters")
		return
	}

	msg := s.store.createMessage(c.ID, userID, username, text)
	s.hub.BroadcastMessage(msg)
	writeJSON(w, http.StatusCreated, msg)
}

// chatForRequest resolves {chatID} and enforces the participant check:
// missing chats are 404, foreign chats are 403.
func (s *Server) chatForRequest(r *http.Request, userID int) (*chat.Chat, int, string) {
	id, err := strconv.Atoi(chi.URLParam(r, "chatID"))
	if err != nil {
		return nil, http.StatusNotFound, "chat_not_found"
	}
	c, ok := s.store.chatByID(id)
	if !ok {
		return nil, http.StatusNotFound, "chat_not_found"
	}
	if c.User1ID != userID && c.User2ID != userID {
		return nil, http.StatusForbidden, "chat_access_denied"
	}
	return c, http.StatusOK, ""
}

func paginate(chats []chat.Chat, limit, offset int) []chat.Chat {
	if offset >= len(chats) {
		return []chat.Chat{}
	}
	end := offset + limit
	if end > len(chats) {
		end = len(chats)
	}
	return chats[offset:end]
}
