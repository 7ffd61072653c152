// Package sheets defines the ledger sink the worker writes record events
// to, with a Google Sheets adapter and an in-memory one.
package sheets

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// Entry is one ledger row. Amount is already formatted; it is empty for
// deletions and categories.
type Entry struct {
	Timestamp    time.Time
	Op           string
	Kind         string
	RecordID     core.ID
	UserID       core.ID
	Amount       string
	CategoryName string
	CreatedDate  string
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		AppendEntry(ctx context.Context, e Entry) (rowRef string, err error)
	}

	LedgerReader interface {
		Entries(ctx context.Context) ([]Entry, error)
	}
)
