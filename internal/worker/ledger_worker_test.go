package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/sheets"
	"fintrack/internal/sheets/memory"
)

type failingLedger struct{ calls int }

func (f *failingLedger) AppendEntry(context.Context, sheets.Entry) (string, error) {
	f.calls++
	return "", errors.New("quota exceeded")
}

func TestHandleRecordEvent_AppendsEntry(t *testing.T) {
	ledger := memory.New()
	w := NewLedgerWorker(ledger, nil)
	ctx := context.Background()

	ev := amqp.NewRecordEvent(amqp.OpCreated, amqp.KindExpense, "7", "42").WithAmount(decimal.RequireFromString("12.5"))
	ev.CategoryName = "Food"
	ev.CreatedDate = "2024-05-01"

	require.NoError(t, w.HandleRecordEvent(ctx, ev))

	entries, err := ledger.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "created", entries[0].Op)
	assert.Equal(t, "12.50", entries[0].Amount)
	assert.Equal(t, "Food", entries[0].CategoryName)
	assert.Equal(t, ev.Timestamp, entries[0].Timestamp)
}

func TestHandleRecordEvent_SkipsRedelivery(t *testing.T) {
	ledger := memory.New()
	w := NewLedgerWorker(ledger, nil)
	ctx := context.Background()

	ev := amqp.NewRecordEvent(amqp.OpDeleted, amqp.KindIncome, "7", "3")
	require.NoError(t, w.HandleRecordEvent(ctx, ev))
	require.NoError(t, w.HandleRecordEvent(ctx, ev))

	later := *ev
	later.Timestamp = ev.Timestamp.Add(time.Second)
	require.NoError(t, w.HandleRecordEvent(ctx, &later))

	entries, _ := ledger.Entries(ctx)
	assert.Len(t, entries, 2)
}

func TestHandleRecordEvent_LedgerErrorIsReturned(t *testing.T) {
	ledger := &failingLedger{}
	w := NewLedgerWorker(ledger, nil)
	ev := amqp.NewRecordEvent(amqp.OpCreated, amqp.KindCategory, "7", "1")

	err := w.HandleRecordEvent(context.Background(), ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	// a failed append is not remembered, so the requeued delivery retries
	_ = w.HandleRecordEvent(context.Background(), ev)
	assert.Equal(t, 2, ledger.calls)
}

func TestEntryFromEvent_NullAmount(t *testing.T) {
	e := EntryFromEvent(amqp.NewRecordEvent(amqp.OpDeleted, amqp.KindExpense, "u", "r"))
	assert.Empty(t, e.Amount)
	assert.Equal(t, "expense", e.Kind)
}
