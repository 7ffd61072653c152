package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

// Validation failures; each maps to a 400 with its text as the message.
var (
	errMalformedBody   = errors.New("malformed request body")
	errMissingUserID   = errors.New("user_id is required")
	errMissingID       = errors.New("id is required")
	errMissingName     = errors.New("name is required")
	errMissingCategory = errors.New("category_id is required")
	errMissingUsername = errors.New("username is required")
	errMissingPassword = errors.New("password is required")
	errInvalidAmount   = errors.New("amount must be a positive number")
)

// decodeJSON reads a bounded JSON body. Numbers are kept as json.Number so
// amounts are never rounded through float64.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

func parseAmount(n json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(n.String()))
	if err != nil {
		return decimal.Zero, errInvalidAmount
	}
	if core.ValidateAmount(d) != nil {
		return decimal.Zero, errInvalidAmount
	}
	return d, nil
}

// ownerParam reads the user_id query parameter.
func ownerParam(r *http.Request) (core.ID, error) {
	id := core.ID(strings.TrimSpace(r.URL.Query().Get("user_id")))
	if id.IsZero() {
		return "", errMissingUserID
	}
	return id, nil
}

// recordParams reads the id and user_id query parameters of a delete.
func recordParams(r *http.Request) (id, userID core.ID, err error) {
	userID, err = ownerParam(r)
	if err != nil {
		return "", "", err
	}
	id = core.ID(strings.TrimSpace(r.URL.Query().Get("id")))
	if id.IsZero() {
		return "", "", errMissingID
	}
	return id, userID, nil
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s))
}

func requireIDs(id, userID core.ID) error {
	if userID.IsZero() {
		return errMissingUserID
	}
	if id.IsZero() {
		return errMissingID
	}
	return nil
}
