package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderToken is stored in every Identity. The backend never issues
// per-user tokens; access is granted by the shared admin secret.
const PlaceholderToken = "placeholder-token"

// DateLayout is the wire format of created_date.
const DateLayout = "2006-01-02"

type (
	// ID identifies users and records. The API returns ids either as JSON
	// strings or numbers depending on the column type, so both decode.
	ID string

	Identity struct {
		ID       ID     `json:"id"`
		Username string `json:"username"`
		Token    string `json:"token"`
	}

	// Account is a user row as returned by the login lookup.
	Account struct {
		ID       ID     `json:"id"`
		Username string `json:"username"`
		Password string `json:"password"`
	}

	Category struct {
		ID     ID     `json:"id"`
		Name   string `json:"name"`
		UserID ID     `json:"user_id,omitempty"`
	}

	// CategoryRef is the category embedded in an expense row.
	CategoryRef struct {
		ID   ID     `json:"id"`
		Name string `json:"name"`
	}

	Income struct {
		ID          ID              `json:"id"`
		Amount      decimal.Decimal `json:"income_amt"`
		CreatedDate string          `json:"created_date"`
	}

	Expense struct {
		ID          ID              `json:"id"`
		Amount      decimal.Decimal `json:"expense_amt"`
		CreatedDate string          `json:"created_date"`
		Category    CategoryRef     `json:"category"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyName     = errors.New("empty name")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidID     = errors.New("invalid id")
)

func (id ID) String() string { return string(id) }

// IsZero reports whether the id is absent.
func (id ID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

// MarshalJSON writes integer ids as JSON numbers so they round trip with
// integer key columns. Everything else is a string.
func (id ID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if isDigits(s) {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

func isDigits(s string) bool {
	if s == "" || len(s) > 18 || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, string(b))
	}
	*id = ID(n.String())
	return nil
}

// Valid reports whether every identity field is populated. A partially
// populated identity is treated as no identity at all.
func (i Identity) Valid() bool {
	return !i.ID.IsZero() && strings.TrimSpace(i.Username) != "" && i.Token != ""
}

// NewIdentity builds the session identity for an account row.
func NewIdentity(a Account) Identity {
	return Identity{ID: a.ID, Username: a.Username, Token: PlaceholderToken}
}

func (c Category) RecordID() ID { return c.ID }
func (i Income) RecordID() ID   { return i.ID }
func (e Expense) RecordID() ID  { return e.ID }

// Ref returns the reference embedded into expenses.
func (c Category) Ref() CategoryRef { return CategoryRef{ID: c.ID, Name: c.Name} }

// Today formats the UTC calendar date of now as a created_date value.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// FindCategory looks up a category by id in an already loaded collection.
func FindCategory(categories []Category, id ID) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
