package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// handleLogin returns every account with the username. Passwords are
// compared by the caller.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	username := sanitizeInput(req.Username)
	if username == "" {
		badRequest(w, errMissingUsername)
		return
	}

	users, err := s.store.FindUsers(r.Context(), username)
	if err != nil {
		s.storeError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Users []core.Account `json:"users"`
	}{users})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	username := sanitizeInput(req.Username)
	switch {
	case username == "":
		badRequest(w, errMissingUsername)
		return
	case req.Password == "":
		badRequest(w, errMissingPassword)
		return
	}

	id, err := s.store.CreateUser(r.Context(), username, req.Password)
	if err != nil {
		s.storeError(w, r, "create_user", err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "User created",
		log.FieldUserID, id.String(),
		log.FieldUsername, username)
	writeJSON(w, http.StatusOK, insertedBody{ID: id})
}
