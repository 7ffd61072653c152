package http

import (
	"encoding/json"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	rows, err := s.store.ListIncomes(r.Context(), userID)
	if err != nil {
		s.storeError(w, r, "list_incomes", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Income []incomeRow `json:"income"`
	}{incomeRows(rows)})
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount json.Number `json:"income_amt"`
		UserID core.ID     `json:"user_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.UserID.IsZero() {
		badRequest(w, errMissingUserID)
		return
	}
	amt, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}

	id, err := s.store.AddIncome(r.Context(), req.UserID, amt, core.Today(s.now()))
	s.writeInserted(w, r, kindIncome, id, req.UserID, err)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     core.ID     `json:"id"`
		UserID core.ID     `json:"user_id"`
		Amount json.Number `json:"income_amt"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := requireIDs(req.ID, req.UserID); err != nil {
		badRequest(w, err)
		return
	}
	amt, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}

	n, err := s.store.UpdateIncome(r.Context(), req.UserID, req.ID, amt)
	s.writeAffected(w, r, "update_income", log.OpUpdate, kindIncome, req.ID, req.UserID, n, err)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, userID, err := recordParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	n, err := s.store.DeleteIncome(r.Context(), userID, id)
	s.writeAffected(w, r, "delete_income", log.OpDelete, kindIncome, id, userID, n, err)
}

func (s *Server) handleTotalIncome(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	total, err := s.store.TotalIncome(r.Context(), userID)
	if err != nil {
		s.storeError(w, r, "total_income", err)
		return
	}
	writeJSON(w, http.StatusOK, aggregateBody("income_aggregate", "income_amt", total))
}
