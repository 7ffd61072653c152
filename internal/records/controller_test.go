package records

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/api"
	"fintrack/internal/core"
)

// fakeAPI records every call and answers from canned values.
type fakeAPI struct {
	mu       sync.Mutex
	calls    []string
	incomes  []core.Income
	expenses []core.Expense
	cats     []core.Category
	addID    core.ID
	affected int
	err      error
	block    chan struct{}
}

func newFakeAPI() *fakeAPI { return &fakeAPI{affected: 1} }

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	block, err := f.block, f.err
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) ListIncomes(_ context.Context, userID core.ID) ([]core.Income, error) {
	if err := f.record("ListIncomes " + userID.String()); err != nil {
		return nil, err
	}
	return f.incomes, nil
}

func (f *fakeAPI) AddIncome(_ context.Context, userID core.ID, amt decimal.Decimal) (core.ID, error) {
	return f.addID, f.record(fmt.Sprintf("AddIncome %s %s", userID, amt))
}

func (f *fakeAPI) UpdateIncome(_ context.Context, userID, id core.ID, amt decimal.Decimal) (int, error) {
	return f.affected, f.record(fmt.Sprintf("UpdateIncome %s %s %s", userID, id, amt))
}

func (f *fakeAPI) DeleteIncome(_ context.Context, userID, id core.ID) (int, error) {
	return f.affected, f.record(fmt.Sprintf("DeleteIncome %s %s", userID, id))
}

func (f *fakeAPI) ListExpenses(_ context.Context, userID core.ID) ([]core.Expense, error) {
	if err := f.record("ListExpenses " + userID.String()); err != nil {
		return nil, err
	}
	return f.expenses, nil
}

func (f *fakeAPI) AddExpense(_ context.Context, userID core.ID, amt decimal.Decimal, categoryID core.ID) (core.ID, error) {
	return f.addID, f.record(fmt.Sprintf("AddExpense %s %s %s", userID, amt, categoryID))
}

func (f *fakeAPI) UpdateExpense(_ context.Context, userID, id core.ID, amt decimal.Decimal, categoryID core.ID) (int, error) {
	return f.affected, f.record(fmt.Sprintf("UpdateExpense %s %s %s %s", userID, id, amt, categoryID))
}

func (f *fakeAPI) DeleteExpense(_ context.Context, userID, id core.ID) (int, error) {
	return f.affected, f.record(fmt.Sprintf("DeleteExpense %s %s", userID, id))
}

func (f *fakeAPI) ListCategories(_ context.Context, userID core.ID) ([]core.Category, error) {
	if err := f.record("ListCategories " + userID.String()); err != nil {
		return nil, err
	}
	return f.cats, nil
}

func (f *fakeAPI) AddCategory(_ context.Context, userID core.ID, name string) (core.ID, error) {
	return f.addID, f.record(fmt.Sprintf("AddCategory %s %s", userID, name))
}

func (f *fakeAPI) UpdateCategory(_ context.Context, userID, id core.ID, name string) (int, error) {
	return f.affected, f.record(fmt.Sprintf("UpdateCategory %s %s %s", userID, id, name))
}

func (f *fakeAPI) DeleteCategory(_ context.Context, userID, id core.ID) (int, error) {
	return f.affected, f.record(fmt.Sprintf("DeleteCategory %s %s", userID, id))
}

func (f *fakeAPI) CategoriesDropdown(_ context.Context, userID core.ID) ([]core.Category, error) {
	if err := f.record("CategoriesDropdown " + userID.String()); err != nil {
		return nil, err
	}
	return f.cats, nil
}

type inbox struct {
	mu   sync.Mutex
	msgs []Notification
}

func (b *inbox) Notify(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, n)
}

func (b *inbox) last() Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.msgs) == 0 {
		return Notification{}
	}
	return b.msgs[len(b.msgs)-1]
}

func owner(id core.ID) OwnerSource {
	return OwnerFunc(func() (core.ID, bool) { return id, !id.IsZero() })
}

var fixedNow = func() time.Time { return time.Date(2024, 5, 6, 22, 0, 0, 0, time.UTC) }

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func incomesN(n int) []core.Income {
	out := make([]core.Income, n)
	for i := range out {
		out[i] = core.Income{ID: core.ID(fmt.Sprintf("i%d", i+1)), Amount: decimal.NewFromInt(int64(i + 1)), CreatedDate: "2024-01-01"}
	}
	return out
}

func TestLoad_NoOwnerClearsWithoutRequests(t *testing.T) {
	f := newFakeAPI()
	f.incomes = incomesN(3)
	var current core.ID = "u1"
	c := NewIncomes(f, OwnerFunc(func() (core.ID, bool) { return current, !current.IsZero() }))

	require.NoError(t, c.Load(context.Background()))
	require.Equal(t, 3, c.Len())
	calls := f.callCount()

	current = ""
	require.NoError(t, c.Load(context.Background()))
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Page())
	assert.Equal(t, calls, f.callCount(), "no request without an owner")
}

func TestLoad_DropsResultWhenOwnerChanges(t *testing.T) {
	f := newFakeAPI()
	f.incomes = incomesN(3)
	f.block = make(chan struct{})

	var mu sync.Mutex
	var current core.ID = "u1"
	c := NewIncomes(f, OwnerFunc(func() (core.ID, bool) {
		mu.Lock()
		defer mu.Unlock()
		return current, !current.IsZero()
	}))

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	mu.Lock()
	current = ""
	mu.Unlock()
	close(f.block)

	require.NoError(t, <-done)
	assert.Zero(t, c.Len(), "rows of the previous user are not kept")

	mu.Lock()
	current = "u2"
	mu.Unlock()
	f.block = make(chan struct{})
	go func() { done <- c.Load(context.Background()) }()
	require.Eventually(t, func() bool { return f.callCount() == 2 }, time.Second, time.Millisecond)
	mu.Lock()
	current = "u3"
	mu.Unlock()
	close(f.block)

	require.NoError(t, <-done)
	assert.Zero(t, c.Len())
}

func TestLoad_FailureNotifies(t *testing.T) {
	f := newFakeAPI()
	f.err = &api.Error{Status: http.StatusInternalServerError, Message: "boom"}
	box := &inbox{}
	c := NewIncomes(f, owner("u1"), WithNotifier(box))

	err := c.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, Notification{Level: LevelError, Message: "Failed to load incomes"}, box.last())
}

func TestLoad_FullReplace(t *testing.T) {
	f := newFakeAPI()
	f.incomes = incomesN(25)
	c := NewIncomes(f, owner("u1"))
	require.NoError(t, c.Load(context.Background()))
	require.True(t, c.GoTo(3))

	f.incomes = incomesN(4)
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 1, c.CurrentPage(), "page reset when it no longer exists")
}

func TestAdd_UsesServerID(t *testing.T) {
	f := newFakeAPI()
	f.addID = "srv-1"
	box := &inbox{}
	c := NewExpenses(f, owner("u1"), nil, WithNotifier(box), WithClock(fixedNow))

	rec, err := c.Add(context.Background(), ExpenseFields{Amount: amt("50"), CategoryID: "c1"})
	require.NoError(t, err)

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, core.ID("srv-1"), items[0].ID)
	assert.Equal(t, rec, items[0])
	assert.Equal(t, "2024-05-06", items[0].CreatedDate)
	assert.Equal(t, []string{"AddExpense u1 50 c1"}, f.calls)
	assert.Equal(t, Notification{Level: LevelSuccess, Message: "Expense added successfully"}, box.last())
}

func TestAdd_FallbackIDIsUUID(t *testing.T) {
	f := newFakeAPI()
	c := NewIncomes(f, owner("u1"))

	a, err := c.Add(context.Background(), IncomeFields{Amount: amt("1")})
	require.NoError(t, err)
	b, err := c.Add(context.Background(), IncomeFields{Amount: amt("2")})
	require.NoError(t, err)

	_, perr := uuid.Parse(a.ID.String())
	assert.NoError(t, perr)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestAdd_ResolvesCategoryLocally(t *testing.T) {
	f := newFakeAPI()
	f.addID = "e1"
	f.cats = []core.Category{{ID: "c1", Name: "Food"}, {ID: "c2", Name: "Rent"}}
	cats := NewCategories(f, owner("u1"))
	require.NoError(t, cats.Load(context.Background()))

	c := NewExpenses(f, owner("u1"), cats.Find)
	rec, err := c.Add(context.Background(), ExpenseFields{Amount: amt("9.99"), CategoryID: "c2"})
	require.NoError(t, err)
	assert.Equal(t, core.CategoryRef{ID: "c2", Name: "Rent"}, rec.Category)

	f.addID = "e2"
	rec, err = c.Add(context.Background(), ExpenseFields{Amount: amt("1"), CategoryID: "c9"})
	require.NoError(t, err)
	assert.Equal(t, core.CategoryRef{ID: "c9", Name: UnknownCategory}, rec.Category)
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name string
		run  func(f *fakeAPI, box *inbox) error
		want string
	}{
		{
			name: "not logged in",
			run: func(f *fakeAPI, box *inbox) error {
				_, err := NewIncomes(f, owner(""), WithNotifier(box)).Add(context.Background(), IncomeFields{Amount: amt("5")})
				return err
			},
			want: "Please login to add income",
		},
		{
			name: "category not logged in",
			run: func(f *fakeAPI, box *inbox) error {
				_, err := NewCategories(f, owner(""), WithNotifier(box)).Add(context.Background(), CategoryFields{Name: "Food"})
				return err
			},
			want: "Please login to add categories",
		},
		{
			name: "zero amount",
			run: func(f *fakeAPI, box *inbox) error {
				_, err := NewIncomes(f, owner("u1"), WithNotifier(box)).Add(context.Background(), IncomeFields{Amount: decimal.Zero})
				return err
			},
			want: "Amount must be positive",
		},
		{
			name: "negative expense",
			run: func(f *fakeAPI, box *inbox) error {
				_, err := NewExpenses(f, owner("u1"), nil, WithNotifier(box)).Add(context.Background(), ExpenseFields{Amount: amt("-1"), CategoryID: "c1"})
				return err
			},
			want: "Amount must be positive",
		},
		{
			name: "missing category",
			run: func(f *fakeAPI, box *inbox) error {
				_, err := NewExpenses(f, owner("u1"), nil, WithNotifier(box)).Add(context.Background(), ExpenseFields{Amount: amt("1")})
				return err
			},
			want: "Please select a category",
		},
		{
			name: "blank category name",
			run: func(f *fakeAPI, box *inbox) error {
				_, err := NewCategories(f, owner("u1"), WithNotifier(box)).Add(context.Background(), CategoryFields{Name: "   "})
				return err
			},
			want: "Category name cannot be empty",
		},
		{
			name: "update without id",
			run: func(f *fakeAPI, box *inbox) error {
				return NewIncomes(f, owner("u1"), WithNotifier(box)).Update(context.Background(), "", IncomeFields{Amount: amt("1")})
			},
			want: "Invalid user or income",
		},
		{
			name: "delete without owner",
			run: func(f *fakeAPI, box *inbox) error {
				return NewIncomes(f, owner(""), WithNotifier(box)).Remove(context.Background(), "i1")
			},
			want: "Please login to delete incomes",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAPI()
			box := &inbox{}
			err := tt.run(f, box)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Message)
			assert.Equal(t, Notification{Level: LevelError, Message: tt.want}, box.last())
			assert.Zero(t, f.callCount(), "validation happens before any request")
		})
	}
}

func TestUpdateAndRemove_RequireExactlyOneRow(t *testing.T) {
	for _, affected := range []int{0, 2} {
		t.Run(fmt.Sprintf("%d rows", affected), func(t *testing.T) {
			f := newFakeAPI()
			f.incomes = incomesN(3)
			box := &inbox{}
			c := NewIncomes(f, owner("u1"), WithNotifier(box))
			require.NoError(t, c.Load(context.Background()))
			before := c.Items()

			f.affected = affected
			err := c.Update(context.Background(), "i2", IncomeFields{Amount: amt("99")})
			assert.ErrorIs(t, err, ErrNoRowsAffected)
			assert.Equal(t, before, c.Items())
			assert.Equal(t, Notification{Level: LevelError, Message: MsgNoRowsAffected}, box.last())

			err = c.Remove(context.Background(), "i2")
			assert.ErrorIs(t, err, ErrNoRowsAffected)
			assert.Equal(t, before, c.Items())
		})
	}
}

func TestUpdate_PatchesInPlace(t *testing.T) {
	f := newFakeAPI()
	f.incomes = incomesN(3)
	box := &inbox{}
	c := NewIncomes(f, owner("u1"), WithNotifier(box))
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.Update(context.Background(), "i2", IncomeFields{Amount: amt("42.5")}))
	items := c.Items()
	require.Len(t, items, 3)
	assert.Equal(t, core.ID("i2"), items[1].ID)
	assert.True(t, items[1].Amount.Equal(amt("42.5")))
	assert.Equal(t, "2024-01-01", items[1].CreatedDate)
	assert.True(t, items[0].Amount.Equal(amt("1")))
	assert.Equal(t, "Income updated successfully", box.last().Message)
	assert.Equal(t, "UpdateIncome u1 i2 42.5", f.calls[len(f.calls)-1])
}

func TestUpdateExpense_KeepsCategoryWhenUnknown(t *testing.T) {
	f := newFakeAPI()
	f.expenses = []core.Expense{{ID: "e1", Amount: amt("5"), Category: core.CategoryRef{ID: "c1", Name: "Food"}}}
	f.cats = []core.Category{{ID: "c1", Name: "Food"}, {ID: "c2", Name: "Rent"}}
	opts := NewCategoryOptions(f, owner("u1"), nil)
	require.NoError(t, opts.Load(context.Background()))

	c := NewExpenses(f, owner("u1"), opts.Find)
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.Update(context.Background(), "e1", ExpenseFields{Amount: amt("6"), CategoryID: "c2"}))
	assert.Equal(t, core.CategoryRef{ID: "c2", Name: "Rent"}, c.Items()[0].Category)

	require.NoError(t, c.Update(context.Background(), "e1", ExpenseFields{Amount: amt("7"), CategoryID: "zz"}))
	assert.Equal(t, core.CategoryRef{ID: "c2", Name: "Rent"}, c.Items()[0].Category)
	assert.True(t, c.Items()[0].Amount.Equal(amt("7")))
}

func TestRemove(t *testing.T) {
	f := newFakeAPI()
	f.cats = []core.Category{{ID: "c1", Name: "Food"}, {ID: "c2", Name: "Rent"}}
	box := &inbox{}
	c := NewCategories(f, owner("u1"), WithNotifier(box))
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.Remove(context.Background(), "c1"))
	assert.Equal(t, []core.Category{{ID: "c2", Name: "Rent"}}, c.Items())
	assert.Equal(t, "Category deleted successfully", box.last().Message)
	_, ok := c.Find("c1")
	assert.False(t, ok)
}

func TestMutation_ServerErrorMessage(t *testing.T) {
	f := newFakeAPI()
	box := &inbox{}
	c := NewCategories(f, owner("u1"), WithNotifier(box))

	f.err = &api.Error{Status: http.StatusConflict, Message: "duplicate category"}
	_, err := c.Add(context.Background(), CategoryFields{Name: "Food"})
	require.Error(t, err)
	assert.Equal(t, "duplicate category", box.last().Message)

	f.err = errors.New("dial tcp: refused")
	_, err = c.Add(context.Background(), CategoryFields{Name: "Food"})
	require.Error(t, err)
	assert.Equal(t, "Failed to add category", box.last().Message)
	assert.Zero(t, c.Len())
}

func TestPagination(t *testing.T) {
	tests := []struct {
		n     int
		pages int
	}{
		{0, 0}, {1, 1}, {9, 1}, {10, 1}, {11, 2}, {20, 2}, {21, 3}, {95, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			f := newFakeAPI()
			f.incomes = incomesN(tt.n)
			c := NewIncomes(f, owner("u1"))
			require.NoError(t, c.Load(context.Background()))
			calls := f.callCount()

			assert.Equal(t, tt.pages, c.TotalPages())
			assert.Equal(t, 1, c.CurrentPage())

			assert.False(t, c.GoTo(0))
			assert.Equal(t, 1, c.CurrentPage())
			assert.False(t, c.GoTo(tt.pages+1))
			assert.Equal(t, 1, c.CurrentPage())

			if tt.pages > 0 {
				assert.True(t, c.GoTo(tt.pages))
				assert.Equal(t, tt.pages, c.CurrentPage())
				assert.False(t, c.Next())
				assert.Equal(t, tt.pages, c.CurrentPage())
				want := tt.n - (tt.pages-1)*PageSize
				assert.Len(t, c.Page(), want)
			}
			assert.Equal(t, calls, f.callCount(), "pagination never fetches")
		})
	}
}

func TestPage_Slices(t *testing.T) {
	f := newFakeAPI()
	f.incomes = incomesN(23)
	c := NewIncomes(f, owner("u1"))
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, core.ID("i1"), c.Page()[0].ID)
	require.True(t, c.Next())
	page := c.Page()
	require.Len(t, page, 10)
	assert.Equal(t, core.ID("i11"), page[0].ID)
	require.True(t, c.Next())
	assert.Len(t, c.Page(), 3)
	require.True(t, c.Prev())
	assert.Equal(t, 2, c.CurrentPage())
	require.True(t, c.Prev())
	assert.False(t, c.Prev())
}

func TestSameActionIsSerialized(t *testing.T) {
	f := newFakeAPI()
	f.block = make(chan struct{})
	c := NewIncomes(f, owner("u1"))

	done := make(chan error, 1)
	go func() {
		_, err := c.Add(context.Background(), IncomeFields{Amount: amt("1")})
		done <- err
	}()
	require.Eventually(t, func() bool { return f.callCount() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Add(ctx, IncomeFields{Amount: amt("2")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, f.callCount(), "second add waited instead of racing")

	close(f.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, c.Len())
}
