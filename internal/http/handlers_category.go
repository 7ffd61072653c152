package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	cats, err := s.store.ListCategories(r.Context(), userID)
	if err != nil {
		s.storeError(w, r, "list_categories", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Categories []core.Category `json:"categories"`
	}{cats})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string  `json:"name"`
		UserID core.ID `json:"user_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	name := sanitizeInput(req.Name)
	switch {
	case req.UserID.IsZero():
		badRequest(w, errMissingUserID)
		return
	case name == "":
		badRequest(w, errMissingName)
		return
	}

	id, err := s.store.AddCategory(r.Context(), req.UserID, name)
	s.writeInserted(w, r, kindCategory, id, req.UserID, err)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     core.ID `json:"id"`
		UserID core.ID `json:"user_id"`
		Name   string  `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := requireIDs(req.ID, req.UserID); err != nil {
		badRequest(w, err)
		return
	}
	name := sanitizeInput(req.Name)
	if name == "" {
		badRequest(w, errMissingName)
		return
	}

	n, err := s.store.UpdateCategory(r.Context(), req.UserID, req.ID, name)
	s.writeAffected(w, r, "update_categories", log.OpUpdate, kindCategory, req.ID, req.UserID, n, err)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, userID, err := recordParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	n, err := s.store.DeleteCategory(r.Context(), userID, id)
	s.writeAffected(w, r, "delete_categories", log.OpDelete, kindCategory, id, userID, n, err)
}
