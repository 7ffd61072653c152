package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.RecordEvent
	err    error
	closed bool
}

func (p *recordingPublisher) PublishRecordEvent(_ context.Context, ev *amqp.RecordEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

// countingStore counts total queries to observe cache hits.
type countingStore struct {
	storage.Store
	totalQueries int
}

func (c *countingStore) TotalIncome(ctx context.Context, userID core.ID) (decimal.NullDecimal, error) {
	c.totalQueries++
	return c.Store.TotalIncome(ctx, userID)
}

func (c *countingStore) TotalExpense(ctx context.Context, userID core.ID) (decimal.NullDecimal, error) {
	c.totalQueries++
	return c.Store.TotalExpense(ctx, userID)
}

func newService(t *testing.T) (*RecordService, *countingStore, *recordingPublisher, core.ID) {
	t.Helper()
	store := &countingStore{Store: storage.NewMemoryStore()}
	pub := &recordingPublisher{}
	uid, err := store.CreateUser(context.Background(), "alice", "pw")
	require.NoError(t, err)
	return NewRecordService(store, pub, nil), store, pub, uid
}

func TestRecordService_PublishesMutations(t *testing.T) {
	svc, _, pub, uid := newService(t)
	ctx := context.Background()

	catID, err := svc.AddCategory(ctx, uid, "Food")
	require.NoError(t, err)
	expID, err := svc.AddExpense(ctx, uid, decimal.NewFromInt(12), catID, "2024-02-01")
	require.NoError(t, err)
	_, err = svc.DeleteExpense(ctx, uid, expID)
	require.NoError(t, err)

	require.Len(t, pub.events, 3)
	assert.Equal(t, amqp.OpCreated, pub.events[0].Op)
	assert.Equal(t, amqp.KindCategory, pub.events[0].Kind)

	created := pub.events[1]
	assert.Equal(t, amqp.KindExpense, created.Kind)
	assert.Equal(t, expID, created.RecordID)
	assert.Equal(t, uid, created.UserID)
	assert.Equal(t, "Food", created.CategoryName)
	assert.Equal(t, "2024-02-01", created.CreatedDate)
	assert.True(t, created.Amount.Decimal.Equal(decimal.NewFromInt(12)))

	assert.Equal(t, amqp.OpDeleted, pub.events[2].Op)
	assert.False(t, pub.events[2].Amount.Valid)
}

func TestRecordService_NoEventWithoutRows(t *testing.T) {
	svc, _, pub, uid := newService(t)
	ctx := context.Background()

	n, err := svc.UpdateIncome(ctx, uid, "missing", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = svc.DeleteCategory(ctx, uid, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Empty(t, pub.events)
}

func TestRecordService_PublishFailureDoesNotFailWrite(t *testing.T) {
	svc, _, pub, uid := newService(t)
	pub.err = errors.New("broker down")

	id, err := svc.AddIncome(context.Background(), uid, decimal.NewFromInt(5), "2024-01-01")
	require.NoError(t, err)
	assert.False(t, id.IsZero())
}

func TestRecordService_TotalsCache(t *testing.T) {
	svc, store, _, uid := newService(t)
	ctx := context.Background()

	_, err := svc.AddIncome(ctx, uid, decimal.NewFromInt(100), "2024-01-01")
	require.NoError(t, err)

	total, err := svc.TotalIncome(ctx, uid)
	require.NoError(t, err)
	assert.True(t, total.Decimal.Equal(decimal.NewFromInt(100)))
	_, err = svc.TotalIncome(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, store.totalQueries, "second read is served from cache")

	_, err = svc.AddIncome(ctx, uid, decimal.NewFromInt(50), "2024-01-02")
	require.NoError(t, err)
	total, err = svc.TotalIncome(ctx, uid)
	require.NoError(t, err)
	assert.True(t, total.Decimal.Equal(decimal.NewFromInt(150)), "mutation invalidates")
	assert.Equal(t, 2, store.totalQueries)
}

func TestRecordService_CategoryDeleteInvalidatesExpenseTotal(t *testing.T) {
	svc, _, _, uid := newService(t)
	ctx := context.Background()

	cat, err := svc.AddCategory(ctx, uid, "Rent")
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, uid, decimal.NewFromInt(900), cat, "2024-01-01")
	require.NoError(t, err)

	total, err := svc.TotalExpense(ctx, uid)
	require.NoError(t, err)
	assert.True(t, total.Valid)

	_, err = svc.DeleteCategory(ctx, uid, cat)
	require.NoError(t, err)

	total, err = svc.TotalExpense(ctx, uid)
	require.NoError(t, err)
	assert.False(t, total.Valid)
}

func TestRecordService_NilPublisher(t *testing.T) {
	svc := NewRecordService(storage.NewMemoryStore(), nil, nil)
	uid, err := svc.CreateUser(context.Background(), "bob", "pw")
	require.NoError(t, err)
	_, err = svc.AddCategory(context.Background(), uid, "Misc")
	require.NoError(t, err)
	require.NoError(t, svc.Close())
}

func TestRecordService_CloseClosesPublisher(t *testing.T) {
	svc, _, pub, _ := newService(t)
	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
}
