package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type aggregate[T any] struct {
	Aggregate struct {
		Sum T `json:"sum"`
	} `json:"aggregate"`
}

// TotalIncome returns the sum of the user's incomes. A null sum (no rows)
// is zero.
func (c *Client) TotalIncome(ctx context.Context, userID core.ID) (decimal.Decimal, error) {
	var out struct {
		IncomeAggregate aggregate[struct {
			Amount decimal.NullDecimal `json:"income_amt"`
		}] `json:"income_aggregate"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/gettotalincome", ownerQuery(userID.String()), nil, &out, "Failed to fetch total income"); err != nil {
		return decimal.Zero, err
	}
	return orZero(out.IncomeAggregate.Aggregate.Sum.Amount), nil
}

// TotalExpense returns the sum of the user's expenses. A null sum is zero.
func (c *Client) TotalExpense(ctx context.Context, userID core.ID) (decimal.Decimal, error) {
	var out struct {
		ExpenseAggregate aggregate[struct {
			Amount decimal.NullDecimal `json:"expense_amt"`
		}] `json:"expense_aggregate"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/gettotalexpense", ownerQuery(userID.String()), nil, &out, "Failed to fetch total expenses"); err != nil {
		return decimal.Zero, err
	}
	return orZero(out.ExpenseAggregate.Aggregate.Sum.Amount), nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
