package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-success response from the data API.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// newError picks the message from the payload: "message" first, then "error",
// then fallback.
func newError(status int, payload []byte, fallback string) *Error {
	var body struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	msg := fallback
	if err := json.Unmarshal(payload, &body); err == nil {
		switch {
		case strings.TrimSpace(body.Message) != "":
			msg = body.Message
		case len(body.Error) > 0:
			var s string
			if json.Unmarshal(body.Error, &s) == nil && strings.TrimSpace(s) != "" {
				msg = s
			}
		}
	}
	return &Error{Status: status, Message: msg}
}
