package records

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/api"
	"fintrack/internal/core"
)

// IncomeAPI is the part of the data API used for incomes.
type IncomeAPI interface {
	ListIncomes(ctx context.Context, userID core.ID) ([]core.Income, error)
	AddIncome(ctx context.Context, userID core.ID, amt decimal.Decimal) (core.ID, error)
	UpdateIncome(ctx context.Context, userID, id core.ID, amt decimal.Decimal) (int, error)
	DeleteIncome(ctx context.Context, userID, id core.ID) (int, error)
}

var _ IncomeAPI = (*api.Client)(nil)

type IncomeFields struct {
	Amount decimal.Decimal
}

type incomeAdapter struct {
	api IncomeAPI
}

var _ Adapter[core.Income, IncomeFields] = incomeAdapter{}

// Incomes is the controller for income records.
type Incomes = Controller[core.Income, IncomeFields]

func NewIncomes(client IncomeAPI, owner OwnerSource, opts ...Option) *Incomes {
	return NewController[core.Income, IncomeFields](incomeAdapter{api: client}, owner, opts...)
}

func (incomeAdapter) Kind() Kind {
	return Kind{Noun: "income", Title: "Income", Plural: "incomes"}
}

func (incomeAdapter) Validate(f IncomeFields) error {
	if err := core.ValidateAmount(f.Amount); err != nil {
		return invalid(err, "Amount must be positive")
	}
	return nil
}

func (a incomeAdapter) List(ctx context.Context, owner core.ID) ([]core.Income, error) {
	return a.api.ListIncomes(ctx, owner)
}

func (a incomeAdapter) Add(ctx context.Context, owner core.ID, f IncomeFields) (core.ID, error) {
	return a.api.AddIncome(ctx, owner, f.Amount)
}

func (a incomeAdapter) Update(ctx context.Context, owner, id core.ID, f IncomeFields) (int, error) {
	return a.api.UpdateIncome(ctx, owner, id, f.Amount)
}

func (a incomeAdapter) Delete(ctx context.Context, owner, id core.ID) (int, error) {
	return a.api.DeleteIncome(ctx, owner, id)
}

func (incomeAdapter) Build(_, id core.ID, f IncomeFields, createdDate string) core.Income {
	return core.Income{ID: id, Amount: f.Amount, CreatedDate: createdDate}
}

func (incomeAdapter) Patch(cur core.Income, f IncomeFields) core.Income {
	cur.Amount = f.Amount
	return cur
}
