package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	kindCategory = "category"
	kindIncome   = "income"
	kindExpense  = "expense"
)

func badRequest(w http.ResponseWriter, err error) {
	msg := err.Error()
	if errors.Is(err, errMalformedBody) {
		msg = errMalformedBody.Error()
	}
	writeError(w, http.StatusBadRequest, codeValidationFailed, msg)
}

// storeError maps a storage failure to a response. Unknown errors are
// logged and reported as 500 without detail.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrDuplicateUsername):
		writeError(w, http.StatusConflict, codeConstraintViolated, "Username already exists")
	case errors.Is(err, storage.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, codeConstraintViolated, "Unknown category")
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Store operation failed", err, log.ComponentHTTP, op, nil)
		writeError(w, http.StatusInternalServerError, codeUnexpected, "Internal server error")
	}
}

func (s *Server) logMutation(r *http.Request, op, kind string, id, userID core.ID) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogRecordMutation(r.Context(), op, kind, id.String(), userID.String())
}

// writeAffected finishes an update or delete.
func (s *Server) writeAffected(w http.ResponseWriter, r *http.Request, key, op, kind string, id, userID core.ID, n int64, err error) {
	if err != nil {
		s.storeError(w, r, op, err)
		return
	}
	if n > 0 {
		s.logMutation(r, op, kind, id, userID)
	}
	writeJSON(w, http.StatusOK, mutationBody(key, n))
}

// writeInserted finishes an insert.
func (s *Server) writeInserted(w http.ResponseWriter, r *http.Request, kind string, id, userID core.ID, err error) {
	if err != nil {
		s.storeError(w, r, "add_"+kind, err)
		return
	}
	s.logMutation(r, log.OpCreate, kind, id, userID)
	writeJSON(w, http.StatusOK, insertedBody{ID: id})
}
