// Package records manages the per-user income, expense and category
// collections. A Controller loads the whole collection, applies successful
// mutations locally without refetching and paginates in memory.
package records

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

// Record is any row addressable by id.
type Record interface {
	RecordID() core.ID
}

// OwnerSource yields the id that scopes every request. The auth machine
// implements it; no component reads a global session.
type OwnerSource interface {
	OwnerID() (core.ID, bool)
}

// OwnerFunc adapts a function to OwnerSource.
type OwnerFunc func() (core.ID, bool)

func (f OwnerFunc) OwnerID() (core.ID, bool) { return f() }

// Kind names a record type in user-facing text.
type Kind struct {
	Noun   string // income
	Title  string // Income
	Plural string // incomes

	// AddNoun replaces Noun in the login prompt of Add when set.
	AddNoun string
}

func (k Kind) addNoun() string {
	if k.AddNoun != "" {
		return k.AddNoun
	}
	return k.Noun
}

// Adapter binds a Controller to one record kind: its API calls, its form
// validation and how a successful mutation is reflected locally.
type Adapter[T Record, F any] interface {
	Kind() Kind
	Validate(fields F) error

	List(ctx context.Context, owner core.ID) ([]T, error)
	Add(ctx context.Context, owner core.ID, fields F) (core.ID, error)
	Update(ctx context.Context, owner, id core.ID, fields F) (int, error)
	Delete(ctx context.Context, owner, id core.ID) (int, error)

	// Build makes the local entry for a record the server just created.
	Build(owner, id core.ID, fields F, createdDate string) T
	// Patch applies fields to an existing entry.
	Patch(current T, fields F) T
}

// MsgNoRowsAffected is shown when a mutation did not touch exactly one row.
const MsgNoRowsAffected = "No rows affected or unexpected response"

var (
	ErrNoRowsAffected = errors.New("no rows affected or unexpected response")
	ErrNotLoggedIn    = errors.New("no current user")
	ErrMissingID      = errors.New("missing record id")
)

// ValidationError is a problem with the caller's input found before any
// request is made. Message is shown to the user verbatim.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Err: err}
}

// RowsError reports an affected-row count other than one.
type RowsError struct {
	Op       string
	Affected int
}

func (e *RowsError) Error() string {
	return fmt.Sprintf("%s: %d rows affected", e.Op, e.Affected)
}

func (e *RowsError) Is(target error) bool { return target == ErrNoRowsAffected }
