package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// EventOp is the kind of change a RecordEvent reports.
type EventOp string

const (
	OpCreated EventOp = "created"
	OpUpdated EventOp = "updated"
	OpDeleted EventOp = "deleted"
)

// Record kinds carried in RecordEvent.Kind.
const (
	KindIncome   = "income"
	KindExpense  = "expense"
	KindCategory = "category"
)

var ErrInvalidEvent = errors.New("invalid record event")

// RecordEvent is published after every successful mutation of the
// development backend. Amount is null for categories and deletions.
type RecordEvent struct {
	Op           EventOp             `json:"op"`
	Kind         string              `json:"kind"`
	RecordID     core.ID             `json:"record_id"`
	UserID       core.ID             `json:"user_id"`
	Amount       decimal.NullDecimal `json:"amount"`
	CategoryID   core.ID             `json:"category_id,omitempty"`
	CategoryName string              `json:"category_name,omitempty"`
	CreatedDate  string              `json:"created_date,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}

// NewRecordEvent stamps a new event with the current time.
func NewRecordEvent(op EventOp, kind string, userID, recordID core.ID) *RecordEvent {
	return &RecordEvent{
		Op:        op,
		Kind:      kind,
		RecordID:  recordID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// WithAmount sets the amount and returns the event.
func (e *RecordEvent) WithAmount(amount decimal.Decimal) *RecordEvent {
	e.Amount = decimal.NewNullDecimal(amount)
	return e
}

func (e *RecordEvent) Validate() error {
	switch e.Op {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidEvent, e.Op)
	}
	switch e.Kind {
	case KindIncome, KindExpense, KindCategory:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	if e.RecordID.IsZero() {
		return fmt.Errorf("%w: missing record id", ErrInvalidEvent)
	}
	if e.UserID.IsZero() {
		return fmt.Errorf("%w: missing user id", ErrInvalidEvent)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON decodes and validates a message body.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var e RecordEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
