package records

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

type action int

const (
	actionLoad action = iota
	actionAdd
	actionUpdate
	actionRemove
	numActions
)

// Controller owns one record collection. It is safe for concurrent use;
// calls of the same action are serialized and a waiting call gives up when
// its context is done.
type Controller[T Record, F any] struct {
	adapter Adapter[T, F]
	owner   OwnerSource
	notify  Notifier
	logger  *log.Logger
	now     func() time.Time
	newID   func() core.ID

	slots [numActions]*semaphore.Weighted

	mu    sync.Mutex
	items []T
	pager Pager
}

type Option func(*options)

type options struct {
	notify   Notifier
	logger   *log.Logger
	now      func() time.Time
	newID    func() core.ID
	pageSize int
}

func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notify = n }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the clock used to stamp created_date on new entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator sets the fallback id source used when the server does
// not return an id for a new record.
func WithIDGenerator(gen func() core.ID) Option {
	return func(o *options) { o.newID = gen }
}

func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// NewController builds a controller for one record kind.
func NewController[T Record, F any](adapter Adapter[T, F], owner OwnerSource, opts ...Option) *Controller[T, F] {
	o := options{
		notify:   nopNotifier{},
		logger:   log.Discard(),
		now:      time.Now,
		newID:    func() core.ID { return core.ID(uuid.NewString()) },
		pageSize: PageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notify == nil {
		o.notify = nopNotifier{}
	}
	if o.logger == nil {
		o.logger = log.Discard()
	}

	c := &Controller[T, F]{
		adapter: adapter,
		owner:   owner,
		notify:  o.notify,
		logger:  o.logger.WithComponent(log.ComponentRecords).With(log.FieldKind, adapter.Kind().Noun),
		now:     o.now,
		newID:   o.newID,
		pager:   NewPager(o.pageSize),
	}
	for i := range c.slots {
		c.slots[i] = semaphore.NewWeighted(1)
	}
	return c
}

func (c *Controller[T, F]) Kind() Kind { return c.adapter.Kind() }

func (c *Controller[T, F]) acquire(ctx context.Context, a action) (func(), error) {
	if err := c.slots[a].Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { c.slots[a].Release(1) }, nil
}

// Load replaces the collection with the server's. Without a current owner
// the collection is emptied and nothing is requested.
func (c *Controller[T, F]) Load(ctx context.Context) error {
	kind := c.adapter.Kind()
	owner, ok := c.owner.OwnerID()
	if !ok {
		c.mu.Lock()
		c.items = nil
		c.pager.Reset()
		c.mu.Unlock()
		return nil
	}

	release, err := c.acquire(ctx, actionLoad)
	if err != nil {
		return err
	}
	defer release()

	items, err := c.adapter.List(ctx, owner)
	if err != nil {
		c.fail("Failed to load "+kind.Plural, log.OpList, owner, "", err)
		return fmt.Errorf("load %s: %w", kind.Plural, err)
	}

	c.mu.Lock()
	current, ok := c.owner.OwnerID()
	if !ok || current != owner {
		// the owner changed while the request was in flight
		if !ok {
			c.items = nil
			c.pager.Reset()
		}
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "Discarding stale collection", log.FieldUserID, owner.String())
		return nil
	}
	c.items = append([]T(nil), items...)
	if !c.pager.GoTo(c.pager.Current(), len(c.items)) {
		c.pager.Reset()
	}
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "Collection loaded", log.FieldUserID, owner.String(), "count", len(items))
	return nil
}

// Add creates a record and appends it locally.
func (c *Controller[T, F]) Add(ctx context.Context, fields F) (T, error) {
	var zero T
	kind := c.adapter.Kind()
	owner, ok := c.owner.OwnerID()
	if !ok {
		return zero, c.reject(invalid(ErrNotLoggedIn, "Please login to add %s", kind.addNoun()))
	}
	if err := c.adapter.Validate(fields); err != nil {
		return zero, c.reject(err)
	}

	release, err := c.acquire(ctx, actionAdd)
	if err != nil {
		return zero, err
	}
	defer release()

	id, err := c.adapter.Add(ctx, owner, fields)
	if err != nil {
		c.fail(api.Message(err, "Failed to add "+kind.Noun), log.OpCreate, owner, "", err)
		return zero, fmt.Errorf("add %s: %w", kind.Noun, err)
	}
	if id.IsZero() {
		id = c.newID()
	}

	rec := c.adapter.Build(owner, id, fields, core.Today(c.now()))
	c.mu.Lock()
	c.items = append(c.items, rec)
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Record added", log.FieldUserID, owner.String(), log.FieldRecordID, id.String())
	c.notify.Notify(Notification{Level: LevelSuccess, Message: kind.Title + " added successfully"})
	return rec, nil
}

// Update changes a record and patches the local entry when exactly one row
// was affected.
func (c *Controller[T, F]) Update(ctx context.Context, id core.ID, fields F) error {
	kind := c.adapter.Kind()
	owner, ok := c.owner.OwnerID()
	if !ok || id.IsZero() {
		cause := ErrMissingID
		if !ok {
			cause = ErrNotLoggedIn
		}
		return c.reject(invalid(cause, "Invalid user or %s", kind.Noun))
	}
	if err := c.adapter.Validate(fields); err != nil {
		return c.reject(err)
	}

	release, err := c.acquire(ctx, actionUpdate)
	if err != nil {
		return err
	}
	defer release()

	n, err := c.adapter.Update(ctx, owner, id, fields)
	if err != nil {
		c.fail(api.Message(err, "Failed to update "+kind.Noun), log.OpUpdate, owner, id, err)
		return fmt.Errorf("update %s: %w", kind.Noun, err)
	}
	if n != 1 {
		err := &RowsError{Op: "update " + kind.Noun, Affected: n}
		c.fail(MsgNoRowsAffected, log.OpUpdate, owner, id, err)
		return err
	}

	c.mu.Lock()
	for i, it := range c.items {
		if it.RecordID() == id {
			c.items[i] = c.adapter.Patch(it, fields)
		}
	}
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Record updated", log.FieldUserID, owner.String(), log.FieldRecordID, id.String())
	c.notify.Notify(Notification{Level: LevelSuccess, Message: kind.Title + " updated successfully"})
	return nil
}

// Remove deletes a record and drops the local entry when exactly one row
// was affected.
func (c *Controller[T, F]) Remove(ctx context.Context, id core.ID) error {
	kind := c.adapter.Kind()
	owner, ok := c.owner.OwnerID()
	if !ok {
		return c.reject(invalid(ErrNotLoggedIn, "Please login to delete %s", kind.Plural))
	}
	if id.IsZero() {
		return c.reject(invalid(ErrMissingID, "Invalid user or %s", kind.Noun))
	}

	release, err := c.acquire(ctx, actionRemove)
	if err != nil {
		return err
	}
	defer release()

	n, err := c.adapter.Delete(ctx, owner, id)
	if err != nil {
		c.fail(api.Message(err, "Failed to delete "+kind.Noun), log.OpDelete, owner, id, err)
		return fmt.Errorf("delete %s: %w", kind.Noun, err)
	}
	if n != 1 {
		err := &RowsError{Op: "delete " + kind.Noun, Affected: n}
		c.fail(MsgNoRowsAffected, log.OpDelete, owner, id, err)
		return err
	}

	c.mu.Lock()
	kept := c.items[:0:0]
	for _, it := range c.items {
		if it.RecordID() != id {
			kept = append(kept, it)
		}
	}
	c.items = kept
	if !c.pager.GoTo(c.pager.Current(), len(c.items)) {
		c.pager.GoTo(c.pager.TotalPages(len(c.items)), len(c.items))
	}
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Record deleted", log.FieldUserID, owner.String(), log.FieldRecordID, id.String())
	c.notify.Notify(Notification{Level: LevelSuccess, Message: kind.Title + " deleted successfully"})
	return nil
}

// reject surfaces a validation problem. Validation is never logged.
func (c *Controller[T, F]) reject(err error) error {
	c.notify.Notify(Notification{Level: LevelError, Message: err.Error()})
	return err
}

func (c *Controller[T, F]) fail(message, op string, owner, id core.ID, err error) {
	fields := log.NewFields().
		WithRecord(c.adapter.Kind().Noun, id.String(), owner.String()).
		WithOperation(op).
		WithError(err)
	c.logger.Warn("Record operation failed", fields.ToSlice()...)
	c.notify.Notify(Notification{Level: LevelError, Message: message})
}

// Items returns a copy of the whole collection.
func (c *Controller[T, F]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

func (c *Controller[T, F]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Find looks up a loaded record by id.
func (c *Controller[T, F]) Find(id core.ID) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.RecordID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (c *Controller[T, F]) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager.TotalPages(len(c.items))
}

func (c *Controller[T, F]) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager.Current()
}

// GoTo changes page; requests outside [1, TotalPages] are ignored.
func (c *Controller[T, F]) GoTo(page int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager.GoTo(page, len(c.items))
}

func (c *Controller[T, F]) Next() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager.GoTo(c.pager.Current()+1, len(c.items))
}

func (c *Controller[T, F]) Prev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pager.GoTo(c.pager.Current()-1, len(c.items))
}

// Page returns a copy of the rows on the current page.
func (c *Controller[T, F]) Page() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	lo, hi := c.pager.Bounds(len(c.items))
	return append([]T(nil), c.items[lo:hi]...)
}
