package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Totals is the dashboard summary for one user.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// NewTotals computes the balance as income minus expense.
func NewTotals(income, expense decimal.Decimal) Totals {
	return Totals{Income: income, Expense: expense, Balance: income.Sub(expense)}
}

// SumByCategory groups expenses by category name, largest first.
func SumByCategory(expenses []Expense) []CategoryAmount {
	sums := map[string]decimal.Decimal{}
	for _, e := range expenses {
		name := e.Category.Name
		if name == "" {
			name = "Uncategorized"
		}
		sums[name] = sums[name].Add(e.Amount)
	}
	out := make([]CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
