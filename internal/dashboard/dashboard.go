// Package dashboard computes the per-user summary: total income, total
// expense, balance and the expense breakdown by category.
package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/records"
)

type TotalsAPI interface {
	TotalIncome(ctx context.Context, userID core.ID) (decimal.Decimal, error)
	TotalExpense(ctx context.Context, userID core.ID) (decimal.Decimal, error)
}

var _ TotalsAPI = (*api.Client)(nil)

type Dashboard struct {
	api    TotalsAPI
	owner  records.OwnerSource
	logger *log.Logger

	mu     sync.Mutex
	totals core.Totals
}

func New(client TotalsAPI, owner records.OwnerSource, logger *log.Logger) *Dashboard {
	if logger == nil {
		logger = log.Discard()
	}
	return &Dashboard{api: client, owner: owner, logger: logger.WithComponent(log.ComponentDashboard)}
}

// Load fetches both totals concurrently. Without a current owner the
// summary is zero and nothing is requested.
func (d *Dashboard) Load(ctx context.Context) (core.Totals, error) {
	owner, ok := d.owner.OwnerID()
	if !ok {
		d.set(core.Totals{})
		return core.Totals{}, nil
	}

	var income, expense decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := d.api.TotalIncome(gctx, owner)
		if err != nil {
			return fmt.Errorf("total income: %w", err)
		}
		income = v
		return nil
	})
	g.Go(func() error {
		v, err := d.api.TotalExpense(gctx, owner)
		if err != nil {
			return fmt.Errorf("total expense: %w", err)
		}
		expense = v
		return nil
	})
	if err := g.Wait(); err != nil {
		d.logger.WarnContext(ctx, "Cannot load totals", log.FieldUserID, owner.String(), log.FieldError, err)
		return core.Totals{}, err
	}

	t := core.NewTotals(income, expense)
	d.set(t)
	return t, nil
}

func (d *Dashboard) set(t core.Totals) {
	d.mu.Lock()
	d.totals = t
	d.mu.Unlock()
}

// Totals returns the last loaded summary.
func (d *Dashboard) Totals() core.Totals {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.totals
}

// ByCategory groups expenses by category name, largest first.
func ByCategory(expenses []core.Expense) []core.CategoryAmount {
	return core.SumByCategory(expenses)
}
