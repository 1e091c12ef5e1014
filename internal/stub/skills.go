package stub

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"skillswap/internal/skill"
)

func (s *Server) handleCreateSkill(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	var in skill.Create
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_skill", "skill name is required")
		return
	}
	if in.Type != skill.TypeTeaching && in.Type != skill.TypeLearning {
		writeError(w, http.StatusBadRequest, "invalid_skill", "type must be teaching or learning")
		return
	}
	writeJSON(w, http.StatusCreated, s.store.createSkill(userID, in))
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 100)
	skills := s.store.listSkills(0, r.URL.Query().Get("skill_type"), "")
	writeJSON(w, http.StatusOK, map[string]any{
		"items": paginateSkills(skills, limit, offset),
		"total": len(skills),
	})
}

func (s *Server) handleSearchSkills(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 100)
	skills := s.store.listSkills(0, r.URL.Query().Get("skill_type"), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{
		"items": paginateSkills(skills, limit, offset),
		"total": len(skills),
	})
}

func (s *Server) handleUserSkills(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "user id must be an integer")
		return
	}
	limit, offset := pagination(r, 100)
	skills := s.store.listSkills(ownerID, r.URL.Query().Get("skill_type"), "")
	writeJSON(w, http.StatusOK, map[string]any{
		"items": paginateSkills(skills, limit, offset),
		"total": len(skills),
	})
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	sk, status, key := s.skillForRequest(r)
	if sk == nil {
		writeError(w, status, key, "skill unavailable")
		return
	}
	writeJSON(w, http.StatusOK, sk)
}

func (s *Server) handleUpdateSkill(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	sk, status, key := s.skillForRequest(r)
	if sk == nil {
		writeError(w, status, key, "skill unavailable")
		return
	}
	if sk.UserID != userID {
		writeError(w, http.StatusForbidden, "skill_access_denied", "not your skill")
		return
	}

	var upd skill.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_skill", "malformed update payload")
		return
	}
	updated, _ := s.store.updateSkill(sk.ID, upd)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSkill(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	sk, status, key := s.skillForRequest(r)
	if sk == nil {
		writeError(w, status, key, "skill unavailable")
		return
	}
	if sk.UserID != userID {
		writeError(w, http.StatusForbidden, "skill_access_denied", "not your skill")
		return
	}
	s.store.deleteSkill(sk.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDeleteSkills(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	var req struct {
		SkillIDs []int `json:"skill_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.SkillIDs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "skill_ids is required")
		return
	}
	for _, id := range req.SkillIDs {
		if sk, ok := s.store.skillByID(id); ok && sk.UserID == userID {
			s.store.deleteSkill(id)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) skillForRequest(r *http.Request) (*skill.Skill, int, string) {
	id, err := strconv.Atoi(chi.URLParam(r, "skillID"))
	if err != nil {
		return nil, http.StatusNotFound, "skill_not_found"
	}
	sk, ok := s.store.skillByID(id)
	if !ok {
		return nil, http.StatusNotFound, "skill_not_found"
	}
	return sk, http.StatusOK, ""
}

func paginateSkills(skills []skill.Skill, limit, offset int) []skill.Skill {
	if offset >= len(skills) {
		return []skill.Skill{}
	}
	end := offset + limit
	if end > len(skills) {
		end = len(skills)
	}
	return skills[offset:end]
}
