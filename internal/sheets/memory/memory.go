package memory

import (
	"context"
	"fmt"
	"sync"

	ports "fintrack/internal/sheets"
)

// Ledger keeps entries in process. Used by tests and by the worker's
// dry-run mode.
type Ledger struct {
	mu      sync.Mutex
	entries []ports.Entry
}

var (
	_ ports.LedgerWriter = (*Ledger)(nil)
	_ ports.LedgerReader = (*Ledger)(nil)
)

func New() *Ledger {
	return &Ledger{}
}

// AppendEntry stores the entry and returns a synthetic row reference.
func (l *Ledger) AppendEntry(_ context.Context, e ports.Entry) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return fmt.Sprintf("mem:%d", len(l.entries)), nil
}

func (l *Ledger) Entries(_ context.Context) ([]ports.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ports.Entry(nil), l.entries...), nil
}
