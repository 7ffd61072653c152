// Package storage holds the development backend's persistence: the Store
// port and its memory, SQLite and Postgres implementations.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrUnknownCategory   = errors.New("category does not belong to user")
)

type (
	UserStore interface {
		FindUsers(ctx context.Context, username string) ([]core.Account, error)
		CreateUser(ctx context.Context, username, password string) (core.ID, error)
	}

	CategoryStore interface {
		ListCategories(ctx context.Context, userID core.ID) ([]core.Category, error)
		AddCategory(ctx context.Context, userID core.ID, name string) (core.ID, error)
		UpdateCategory(ctx context.Context, userID, id core.ID, name string) (int64, error)
		DeleteCategory(ctx context.Context, userID, id core.ID) (int64, error)
	}

	IncomeStore interface {
		ListIncomes(ctx context.Context, userID core.ID) ([]core.Income, error)
		AddIncome(ctx context.Context, userID core.ID, amount decimal.Decimal, createdDate string) (core.ID, error)
		UpdateIncome(ctx context.Context, userID, id core.ID, amount decimal.Decimal) (int64, error)
		DeleteIncome(ctx context.Context, userID, id core.ID) (int64, error)
		TotalIncome(ctx context.Context, userID core.ID) (decimal.NullDecimal, error)
	}

	// ExpenseStore returns expenses joined with their category.
	ExpenseStore interface {
		ListExpenses(ctx context.Context, userID core.ID) ([]core.Expense, error)
		AddExpense(ctx context.Context, userID core.ID, amount decimal.Decimal, categoryID core.ID, createdDate string) (core.ID, error)
		UpdateExpense(ctx context.Context, userID, id core.ID, amount decimal.Decimal, categoryID core.ID) (int64, error)
		DeleteExpense(ctx context.Context, userID, id core.ID) (int64, error)
		TotalExpense(ctx context.Context, userID core.ID) (decimal.NullDecimal, error)
	}

	// Store is everything the development API serves.
	Store interface {
		UserStore
		CategoryStore
		IncomeStore
		ExpenseStore
		Ping(ctx context.Context) error
		Close() error
	}
)

func nullCents(cents *int64) decimal.NullDecimal {
	if cents == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: core.FromCents(*cents), Valid: true}
}
