// Package stub is an in-memory emulation of the SkillSwap backend: the REST
// API plus the per-chat websocket channel. It backs local development and
// the SDK's integration tests; nothing in it persists.
package stub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"skillswap/internal/auth"
	"skillswap/internal/user"
)

type Server struct {
	store     *store
	hub       *Hub
	jwtSecret []byte
	accessTTL time.Duration
	router    chi.Router
}

// New builds a stub server signing tokens with secret. Access tokens live
// 15 minutes so the refresh path actually gets exercised in dev.
func New(secret string) *Server {
	s := &Server{
		store:     newStore(),
		jwtSecret: []byte(secret),
		accessTTL: 15 * time.Minute,
	}
	s.hub = NewHub(s.store)
	go s.hub.Run()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		// Websocket auth rides in the query string.
		r.Get("/chats/ws/chat/{chatID}", s.requireAuth(http.HandlerFunc(s.handleChatWS)).ServeHTTP)

		// Protected REST
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/users/me", s.handleMe)
			r.Patch("/users/me", s.handleUpdateMe)
			r.Get("/users/search", s.handleSearchUsers)
			r.Get("/users/{userID}", s.handleGetUser)

			r.Post("/skills", s.handleCreateSkill)
			r.Get("/skills", s.handleListSkills)
			r.Get("/skills/search", s.handleSearchSkills)
			r.Post("/skills/bulk-delete", s.handleBulkDeleteSkills)
			r.Get("/skills/users/{userID}", s.handleUserSkills)
			r.Get("/skills/{skillID}", s.handleGetSkill)
			r.Put("/skills/{skillID}", s.handleUpdateSkill)
			r.Delete("/skills/{skillID}", s.handleDeleteSkill)

			r.Post("/chats", s.handleCreateChat)
			r.Get("/chats", s.handleListChats)
			r.Get("/chats/list/with-messages", s.handleListChatsWithMessages)
			r.Get("/chats/{chatID}", s.handleGetChat)
			r.Get("/chats/{chatID}/messages", s.handleChatMessages)
			r.Post("/chats/{chatID}/messages", s.handlePostMessage)

			r.Post("/calls/initiate", s.handleInitiateCall)
			r.Get("/calls/active", s.handleActiveCalls)
			r.Get("/calls/{callID}", s.handleGetCall)
			r.Post("/calls/{callID}/accept", s.handleCallAction("accept"))
			r.Post("/calls/{callID}/reject", s.handleCallAction("reject"))
			r.Post("/calls/{callID}/end", s.handleCallAction("end"))
		})
	})

	s.router = r
	return s
}

// Router returns the HTTP handler, ready for http.ListenAndServe or an
// httptest server.
func (s *Server) Router() http.Handler { return s.router }

// --- auth handlers ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash_failed", "could not hash password")
		return
	}
	u, ok := s.store.createUser(req.Username, req.Email, hash)
	if !ok {
		writeError(w, http.StatusBadRequest, "username_taken", "username is already taken")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed login payload")
		return
	}

	acct, ok := s.store.userByName(req.Username)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "unknown username or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "unknown username or password")
		return
	}

	access, refresh, err := s.issueTokens(acct.ID, acct.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_failed", "could not issue tokens")
		return
	}
	writeJSON(w, http.StatusOK, auth.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ID:           acct.ID,
		Username:     acct.Username,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	userID, ok := s.store.consumeRefreshToken(req.RefreshToken)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token", "refresh token is not valid")
		return
	}
	u, ok := s.store.userByID(userID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token", "refresh token is not valid")
		return
	}

	access, refresh, err := s.issueTokens(u.ID, u.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_failed", "could not issue tokens")
		return
	}
	writeJSON(w, http.StatusOK, auth.TokenPair{AccessToken: access, RefreshToken: refresh})
}

// issueTokens signs a fresh access token and mints a one-use refresh token.
func (s *Server) issueTokens(userID int, username string) (access, refresh string, err error) {
	access, err = s.signToken(userID, username)
	if err != nil {
		return "", "", err
	}
	refresh = uuid.NewString()
	s.store.saveRefreshToken(refresh, userID)
	return access, refresh, nil
}

// --- user handlers ---

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	u, ok := s.store.userByID(userID)
	if !ok {
		writeError(w, http.StatusNotFound, "user_not_found", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	var upd user.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed update payload")
		return
	}
	u, ok := s.store.updateUser(userID, upd.Username, upd.Email)
	if !ok {
		writeError(w, http.StatusBadRequest, "update_failed", "could not update profile")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "user id must be an integer")
		return
	}
	u, ok := s.store.userByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "user_not_found", "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.searchUsers(r.URL.Query().Get("q")))
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError mirrors the production envelope:
// {"detail": {"error_key": "...", "message": "..."}}
func writeError(w http.ResponseWriter, status int, key, message string) {
	writeJSON(w, status, map[string]any{
		"detail": map[string]string{
			"error_key": key,
			"message":   message,
		},
	})
}

func pagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
