package http

import (
	"encoding/json"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	rows, err := s.store.ListExpenses(r.Context(), userID)
	if err != nil {
		s.storeError(w, r, "list_expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Expense []expenseRow `json:"expense"`
	}{expenseRows(rows)})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount     json.Number `json:"expense_amt"`
		UserID     core.ID     `json:"user_id"`
		CategoryID core.ID     `json:"category_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	switch {
	case req.UserID.IsZero():
		badRequest(w, errMissingUserID)
		return
	case req.CategoryID.IsZero():
		badRequest(w, errMissingCategory)
		return
	}
	amt, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}

	id, err := s.store.AddExpense(r.Context(), req.UserID, amt, req.CategoryID, core.Today(s.now()))
	s.writeInserted(w, r, kindExpense, id, req.UserID, err)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID         core.ID     `json:"id"`
		UserID     core.ID     `json:"user_id"`
		Amount     json.Number `json:"expense_amt"`
		CategoryID core.ID     `json:"category_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := requireIDs(req.ID, req.UserID); err != nil {
		badRequest(w, err)
		return
	}
	if req.CategoryID.IsZero() {
		badRequest(w, errMissingCategory)
		return
	}
	amt, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(w, err)
		return
	}

	n, err := s.store.UpdateExpense(r.Context(), req.UserID, req.ID, amt, req.CategoryID)
	s.writeAffected(w, r, "update_expense", log.OpUpdate, kindExpense, req.ID, req.UserID, n, err)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, userID, err := recordParams(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	n, err := s.store.DeleteExpense(r.Context(), userID, id)
	s.writeAffected(w, r, "delete_expense", log.OpDelete, kindExpense, id, userID, n, err)
}

func (s *Server) handleTotalExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := ownerParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	total, err := s.store.TotalExpense(r.Context(), userID)
	if err != nil {
		s.storeError(w, r, "total_expense", err)
		return
	}
	writeJSON(w, http.StatusOK, aggregateBody("expense_aggregate", "expense_amt", total))
}
