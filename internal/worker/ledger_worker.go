// Package worker turns record events into ledger rows.
package worker

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

const (
	seenCacheSize = 10000
	seenCacheTTL  = time.Hour
)

// LedgerWorker appends one ledger row per RecordEvent. Redelivered events
// already appended within the last hour are skipped.
type LedgerWorker struct {
	ledger sheets.LedgerWriter
	seen   *cache.LRUCache[string, string]
	logger *log.Logger
}

func NewLedgerWorker(ledger sheets.LedgerWriter, logger *log.Logger) *LedgerWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerWorker{
		ledger: ledger,
		seen:   cache.NewLRUCache[string, string](seenCacheSize, seenCacheTTL),
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// SeenCache exposes the dedupe cache for sweeping.
func (w *LedgerWorker) SeenCache() cache.Cleaner { return w.seen }

// HandleRecordEvent satisfies amqp.Handler.
func (w *LedgerWorker) HandleRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	key := eventKey(ev)
	if ref, ok := w.seen.Get(key); ok {
		w.logger.InfoContext(ctx, "Skipping duplicate record event",
			log.FieldRecordID, ev.RecordID.String(), "row", ref)
		return nil
	}

	ref, err := w.ledger.AppendEntry(ctx, EntryFromEvent(ev))
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	w.seen.Set(key, ref)

	w.logger.InfoContext(ctx, "Recorded ledger entry",
		log.FieldOperation, string(ev.Op),
		log.FieldKind, ev.Kind,
		log.FieldRecordID, ev.RecordID.String(),
		"row", ref)
	return nil
}

// EntryFromEvent formats ev as a ledger row.
func EntryFromEvent(ev *amqp.RecordEvent) sheets.Entry {
	e := sheets.Entry{
		Timestamp:    ev.Timestamp,
		Op:           string(ev.Op),
		Kind:         ev.Kind,
		RecordID:     ev.RecordID,
		UserID:       ev.UserID,
		CategoryName: ev.CategoryName,
		CreatedDate:  ev.CreatedDate,
	}
	if ev.Amount.Valid {
		e.Amount = core.FormatAmount(ev.Amount.Decimal)
	}
	return e
}

func eventKey(ev *amqp.RecordEvent) string {
	return fmt.Sprintf("%s|%s|%s|%d", ev.Kind, ev.Op, ev.RecordID, ev.Timestamp.UnixNano())
}
