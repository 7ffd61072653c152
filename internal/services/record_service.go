// Package services holds the development backend's write path: persisting
// a mutation, caching totals and announcing the change over AMQP.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	totalsCacheSize = 1000
	totalsCacheTTL  = 5 * time.Minute
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error
}

var _ EventPublisher = (*amqp.Client)(nil)

type totalsKey struct {
	user core.ID
	kind string
}

// RecordService decorates a Store. Reads of totals are cached per user and
// every successful mutation publishes a RecordEvent. A failed publish never
// fails the request.
type RecordService struct {
	storage.Store
	publisher EventPublisher
	totals    *cache.LRUCache[totalsKey, decimal.NullDecimal]
	logger    *log.Logger
}

var _ storage.Store = (*RecordService)(nil)

// NewRecordService wraps store. publisher may be nil.
func NewRecordService(store storage.Store, publisher EventPublisher, logger *log.Logger) *RecordService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecordService{
		Store:     store,
		publisher: publisher,
		totals:    cache.NewLRUCache[totalsKey, decimal.NullDecimal](totalsCacheSize, totalsCacheTTL),
		logger:    logger.WithComponent(log.ComponentStorage),
	}
}

// TotalsCache exposes the cache so it can be registered for sweeping.
func (s *RecordService) TotalsCache() cache.Cleaner { return s.totals }

func (s *RecordService) AddCategory(ctx context.Context, userID core.ID, name string) (core.ID, error) {
	id, err := s.Store.AddCategory(ctx, userID, name)
	if err != nil {
		return "", err
	}
	ev := amqp.NewRecordEvent(amqp.OpCreated, amqp.KindCategory, userID, id)
	ev.CategoryName = name
	s.publish(ctx, ev)
	return id, nil
}

func (s *RecordService) UpdateCategory(ctx context.Context, userID, id core.ID, name string) (int64, error) {
	n, err := s.Store.UpdateCategory(ctx, userID, id, name)
	if err != nil || n == 0 {
		return n, err
	}
	ev := amqp.NewRecordEvent(amqp.OpUpdated, amqp.KindCategory, userID, id)
	ev.CategoryName = name
	s.publish(ctx, ev)
	return n, nil
}

// DeleteCategory also drops the user's cached expense total because the
// category's expenses go with it.
func (s *RecordService) DeleteCategory(ctx context.Context, userID, id core.ID) (int64, error) {
	n, err := s.Store.DeleteCategory(ctx, userID, id)
	if err != nil || n == 0 {
		return n, err
	}
	s.invalidate(userID, amqp.KindExpense)
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpDeleted, amqp.KindCategory, userID, id))
	return n, nil
}

func (s *RecordService) AddIncome(ctx context.Context, userID core.ID, amount decimal.Decimal, createdDate string) (core.ID, error) {
	id, err := s.Store.AddIncome(ctx, userID, amount, createdDate)
	if err != nil {
		return "", err
	}
	s.invalidate(userID, amqp.KindIncome)
	ev := amqp.NewRecordEvent(amqp.OpCreated, amqp.KindIncome, userID, id).WithAmount(amount)
	ev.CreatedDate = createdDate
	s.publish(ctx, ev)
	return id, nil
}

func (s *RecordService) UpdateIncome(ctx context.Context, userID, id core.ID, amount decimal.Decimal) (int64, error) {
	n, err := s.Store.UpdateIncome(ctx, userID, id, amount)
	if err != nil || n == 0 {
		return n, err
	}
	s.invalidate(userID, amqp.KindIncome)
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpUpdated, amqp.KindIncome, userID, id).WithAmount(amount))
	return n, nil
}

func (s *RecordService) DeleteIncome(ctx context.Context, userID, id core.ID) (int64, error) {
	n, err := s.Store.DeleteIncome(ctx, userID, id)
	if err != nil || n == 0 {
		return n, err
	}
	s.invalidate(userID, amqp.KindIncome)
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpDeleted, amqp.KindIncome, userID, id))
	return n, nil
}

func (s *RecordService) TotalIncome(ctx context.Context, userID core.ID) (decimal.NullDecimal, error) {
	return s.cachedTotal(ctx, userID, amqp.KindIncome, s.Store.TotalIncome)
}

func (s *RecordService) AddExpense(ctx context.Context, userID core.ID, amount decimal.Decimal, categoryID core.ID, createdDate string) (core.ID, error) {
	id, err := s.Store.AddExpense(ctx, userID, amount, categoryID, createdDate)
	if err != nil {
		return "", err
	}
	s.invalidate(userID, amqp.KindExpense)
	ev := amqp.NewRecordEvent(amqp.OpCreated, amqp.KindExpense, userID, id).WithAmount(amount)
	ev.CreatedDate = createdDate
	s.withCategory(ctx, ev, categoryID)
	s.publish(ctx, ev)
	return id, nil
}

func (s *RecordService) UpdateExpense(ctx context.Context, userID, id core.ID, amount decimal.Decimal, categoryID core.ID) (int64, error) {
	n, err := s.Store.UpdateExpense(ctx, userID, id, amount, categoryID)
	if err != nil || n == 0 {
		return n, err
	}
	s.invalidate(userID, amqp.KindExpense)
	ev := amqp.NewRecordEvent(amqp.OpUpdated, amqp.KindExpense, userID, id).WithAmount(amount)
	s.withCategory(ctx, ev, categoryID)
	s.publish(ctx, ev)
	return n, nil
}

func (s *RecordService) DeleteExpense(ctx context.Context, userID, id core.ID) (int64, error) {
	n, err := s.Store.DeleteExpense(ctx, userID, id)
	if err != nil || n == 0 {
		return n, err
	}
	s.invalidate(userID, amqp.KindExpense)
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpDeleted, amqp.KindExpense, userID, id))
	return n, nil
}

func (s *RecordService) TotalExpense(ctx context.Context, userID core.ID) (decimal.NullDecimal, error) {
	return s.cachedTotal(ctx, userID, amqp.KindExpense, s.Store.TotalExpense)
}

func (s *RecordService) cachedTotal(ctx context.Context, userID core.ID, kind string,
	load func(context.Context, core.ID) (decimal.NullDecimal, error)) (decimal.NullDecimal, error) {
	key := totalsKey{user: userID, kind: kind}
	if v, ok := s.totals.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx, userID)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	s.totals.Set(key, v)
	return v, nil
}

func (s *RecordService) invalidate(userID core.ID, kind string) {
	s.totals.Delete(totalsKey{user: userID, kind: kind})
}

func (s *RecordService) withCategory(ctx context.Context, ev *amqp.RecordEvent, categoryID core.ID) {
	ev.CategoryID = categoryID
	cats, err := s.Store.ListCategories(ctx, ev.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to resolve category for event", log.FieldError, err)
		return
	}
	if c, ok := core.FindCategory(cats, categoryID); ok {
		ev.CategoryName = c.Name
	}
}

func (s *RecordService) publish(ctx context.Context, ev *amqp.RecordEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish record event",
			log.FieldError, err,
			log.FieldKind, ev.Kind,
			log.FieldRecordID, ev.RecordID.String())
	}
}

// Close closes the store and the publisher when it is closable.
func (s *RecordService) Close() error {
	var errs []error
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
