package stub

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"skillswap/internal/call"
)

func (s *Server) handleInitiateCall(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	var req struct {
		ChatID    int    `json:"chat_id"`
		SkillType string `json:"skill_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed call payload")
		return
	}

	c, ok := s.store.chatByID(req.ChatID)
	if !ok {
		writeError(w, http.StatusNotFound, "chat_not_found", "chat not found")
		return
	}
	if c.User1ID != userID && c.User2ID != userID {
		writeError(w, http.StatusForbidden, "chat_access_denied", "caller is not a participant")
		return
	}
	if req.SkillType == "" {
		req.SkillType = "teaching"
	}

	roomID := "skillswap-" + uuid.NewString()
	writeJSON(w, http.StatusCreated, s.store.createCall(req.ChatID, userID, req.SkillType, roomID))
}

func (s *Server) handleGetCall(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "callID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "call_not_found", "call not found")
		return
	}
	c, ok := s.store.callByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "call_not_found", "call not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleActiveCalls(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	calls := s.store.activeCalls(userID)
	writeJSON(w, http.StatusOK, map[string]any{"items": calls, "total": len(calls)})
}

// handleCallAction advances a call's lifecycle. Transition rules stay
// server-side; the client only triggers them.
func (s *Server) handleCallAction(action string) http.HandlerFunc {
	status := map[string]string{
		"accept": call.StatusAccepted,
		"reject": call.StatusRejected,
		"end":    call.StatusEnded,
	}[action]

	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "callID"))
		if err != nil {
			writeError(w, http.StatusNotFound, "call_not_found", "call not found")
			return
		}
		c, ok := s.store.callByID(id)
		if !ok {
			writeError(w, http.StatusNotFound, "call_not_found", "call not found")
			return
		}
		if c.Status == call.StatusEnded {
			writeError(w, http.StatusBadRequest, "call_ended", "call already ended")
			return
		}
		updated, _ := s.store.setCallStatus(id, status)
		writeJSON(w, http.StatusOK, updated)
	}
}
