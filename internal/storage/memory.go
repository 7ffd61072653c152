package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type memIncome struct {
	core.Income
	userID core.ID
}

type memExpense struct {
	id          core.ID
	userID      core.ID
	amount      decimal.Decimal
	categoryID  core.ID
	createdDate string
}

// MemoryStore keeps everything in process. Rows are returned in insertion
// order.
type MemoryStore struct {
	mu         sync.RWMutex
	users      []core.Account
	categories []core.Category
	incomes    []memIncome
	expenses   []memExpense
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) newID() core.ID {
	return core.ID(uuid.NewString())
}

func (m *MemoryStore) FindUsers(_ context.Context, username string) ([]core.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []core.Account{}
	for _, u := range m.users {
		if u.Username == username {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, username, password string) (core.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return "", ErrDuplicateUsername
		}
	}
	id := m.newID()
	m.users = append(m.users, core.Account{ID: id, Username: username, Password: password})
	return id, nil
}

func (m *MemoryStore) ListCategories(_ context.Context, userID core.ID) ([]core.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []core.Category{}
	for _, c := range m.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) AddCategory(_ context.Context, userID core.ID, name string) (core.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.newID()
	m.categories = append(m.categories, core.Category{ID: id, Name: name, UserID: userID})
	return id, nil
}

func (m *MemoryStore) UpdateCategory(_ context.Context, userID, id core.ID, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.categories {
		if m.categories[i].ID == id && m.categories[i].UserID == userID {
			m.categories[i].Name = name
			n++
		}
	}
	return n, nil
}

// DeleteCategory also removes the category's expenses, like the ON DELETE
// CASCADE of the SQL stores.
func (m *MemoryStore) DeleteCategory(_ context.Context, userID, id core.ID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	kept := m.categories[:0]
	for _, c := range m.categories {
		if c.ID == id && c.UserID == userID {
			n++
			continue
		}
		kept = append(kept, c)
	}
	m.categories = kept
	if n > 0 {
		exp := m.expenses[:0]
		for _, e := range m.expenses {
			if e.categoryID != id {
				exp = append(exp, e)
			}
		}
		m.expenses = exp
	}
	return n, nil
}

func (m *MemoryStore) ListIncomes(_ context.Context, userID core.ID) ([]core.Income, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []core.Income{}
	for _, in := range m.incomes {
		if in.userID == userID {
			out = append(out, in.Income)
		}
	}
	return out, nil
}

func (m *MemoryStore) AddIncome(_ context.Context, userID core.ID, amount decimal.Decimal, createdDate string) (core.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.newID()
	m.incomes = append(m.incomes, memIncome{
		Income: core.Income{ID: id, Amount: core.FromCents(core.ToCents(amount)), CreatedDate: createdDate},
		userID: userID,
	})
	return id, nil
}

func (m *MemoryStore) UpdateIncome(_ context.Context, userID, id core.ID, amount decimal.Decimal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.incomes {
		if m.incomes[i].ID == id && m.incomes[i].userID == userID {
			m.incomes[i].Amount = core.FromCents(core.ToCents(amount))
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteIncome(_ context.Context, userID, id core.ID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	kept := m.incomes[:0]
	for _, in := range m.incomes {
		if in.ID == id && in.userID == userID {
			n++
			continue
		}
		kept = append(kept, in)
	}
	m.incomes = kept
	return n, nil
}

func (m *MemoryStore) TotalIncome(_ context.Context, userID core.ID) (decimal.NullDecimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum *int64
	for _, in := range m.incomes {
		if in.userID == userID {
			sum = addCents(sum, core.ToCents(in.Amount))
		}
	}
	return nullCents(sum), nil
}

func (m *MemoryStore) ownsCategory(userID, categoryID core.ID) (core.Category, bool) {
	for _, c := range m.categories {
		if c.ID == categoryID && c.UserID == userID {
			return c, true
		}
	}
	return core.Category{}, false
}

func (m *MemoryStore) ListExpenses(_ context.Context, userID core.ID) ([]core.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []core.Expense{}
	for _, e := range m.expenses {
		if e.userID != userID {
			continue
		}
		row := core.Expense{ID: e.id, Amount: e.amount, CreatedDate: e.createdDate, Category: core.CategoryRef{ID: e.categoryID}}
		if c, ok := m.ownsCategory(userID, e.categoryID); ok {
			row.Category = c.Ref()
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *MemoryStore) AddExpense(_ context.Context, userID core.ID, amount decimal.Decimal, categoryID core.ID, createdDate string) (core.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ownsCategory(userID, categoryID); !ok {
		return "", ErrUnknownCategory
	}
	id := m.newID()
	m.expenses = append(m.expenses, memExpense{
		id:          id,
		userID:      userID,
		amount:      core.FromCents(core.ToCents(amount)),
		categoryID:  categoryID,
		createdDate: createdDate,
	})
	return id, nil
}

func (m *MemoryStore) UpdateExpense(_ context.Context, userID, id core.ID, amount decimal.Decimal, categoryID core.ID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ownsCategory(userID, categoryID); !ok {
		return 0, ErrUnknownCategory
	}
	var n int64
	for i := range m.expenses {
		if m.expenses[i].id == id && m.expenses[i].userID == userID {
			m.expenses[i].amount = core.FromCents(core.ToCents(amount))
			m.expenses[i].categoryID = categoryID
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteExpense(_ context.Context, userID, id core.ID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	kept := m.expenses[:0]
	for _, e := range m.expenses {
		if e.id == id && e.userID == userID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.expenses = kept
	return n, nil
}

func (m *MemoryStore) TotalExpense(_ context.Context, userID core.ID) (decimal.NullDecimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum *int64
	for _, e := range m.expenses {
		if e.userID == userID {
			sum = addCents(sum, core.ToCents(e.amount))
		}
	}
	return nullCents(sum), nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func addCents(sum *int64, cents int64) *int64 {
	if sum == nil {
		v := cents
		return &v
	}
	*sum += cents
	return sum
}
