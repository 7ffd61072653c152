package records

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/api"
	"fintrack/internal/core"
)

// UnknownCategory names a category id that is not among the loaded ones.
const UnknownCategory = "Unknown"

type ExpenseAPI interface {
	ListExpenses(ctx context.Context, userID core.ID) ([]core.Expense, error)
	AddExpense(ctx context.Context, userID core.ID, amt decimal.Decimal, categoryID core.ID) (core.ID, error)
	UpdateExpense(ctx context.Context, userID, id core.ID, amt decimal.Decimal, categoryID core.ID) (int, error)
	DeleteExpense(ctx context.Context, userID, id core.ID) (int, error)
}

var _ ExpenseAPI = (*api.Client)(nil)

type ExpenseFields struct {
	Amount     decimal.Decimal
	CategoryID core.ID
}

// CategoryLookup resolves a category id against the loaded categories.
// (*Categories).Find and (*CategoryOptions).Find both satisfy it.
type CategoryLookup func(core.ID) (core.Category, bool)

type expenseAdapter struct {
	api    ExpenseAPI
	lookup CategoryLookup
}

var _ Adapter[core.Expense, ExpenseFields] = expenseAdapter{}

type Expenses = Controller[core.Expense, ExpenseFields]

// NewExpenses builds the expense controller. lookup may be nil, in which
// case new entries reference their category by id only.
func NewExpenses(client ExpenseAPI, owner OwnerSource, lookup CategoryLookup, opts ...Option) *Expenses {
	if lookup == nil {
		lookup = func(core.ID) (core.Category, bool) { return core.Category{}, false }
	}
	return NewController[core.Expense, ExpenseFields](expenseAdapter{api: client, lookup: lookup}, owner, opts...)
}

func (expenseAdapter) Kind() Kind {
	return Kind{Noun: "expense", Title: "Expense", Plural: "expenses"}
}

func (expenseAdapter) Validate(f ExpenseFields) error {
	if err := core.ValidateAmount(f.Amount); err != nil {
		return invalid(err, "Amount must be positive")
	}
	if f.CategoryID.IsZero() {
		return invalid(core.ErrEmptyCategory, "Please select a category")
	}
	return nil
}

func (a expenseAdapter) List(ctx context.Context, owner core.ID) ([]core.Expense, error) {
	return a.api.ListExpenses(ctx, owner)
}

func (a expenseAdapter) Add(ctx context.Context, owner core.ID, f ExpenseFields) (core.ID, error) {
	return a.api.AddExpense(ctx, owner, f.Amount, f.CategoryID)
}

func (a expenseAdapter) Update(ctx context.Context, owner, id core.ID, f ExpenseFields) (int, error) {
	return a.api.UpdateExpense(ctx, owner, id, f.Amount, f.CategoryID)
}

func (a expenseAdapter) Delete(ctx context.Context, owner, id core.ID) (int, error) {
	return a.api.DeleteExpense(ctx, owner, id)
}

func (a expenseAdapter) Build(_, id core.ID, f ExpenseFields, createdDate string) core.Expense {
	ref := core.CategoryRef{ID: f.CategoryID, Name: UnknownCategory}
	if cat, ok := a.lookup(f.CategoryID); ok {
		ref = cat.Ref()
	}
	return core.Expense{ID: id, Amount: f.Amount, CreatedDate: createdDate, Category: ref}
}

// Patch keeps the previous category when the new one is not loaded.
func (a expenseAdapter) Patch(cur core.Expense, f ExpenseFields) core.Expense {
	cur.Amount = f.Amount
	if cat, ok := a.lookup(f.CategoryID); ok {
		cur.Category = cat.Ref()
	}
	return cur
}
