package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ID
	}{
		{"string", `"abc-1"`, "abc-1"},
		{"integer", `42`, "42"},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.want, id)
		})
	}

	var id ID
	assert.ErrorIs(t, json.Unmarshal([]byte(`{}`), &id), ErrInvalidID)
}

func TestExpenseRowDecodes(t *testing.T) {
	raw := `{"id": 7, "expense_amt": 12.5, "created_date": "2024-05-01", "category": {"id": 3, "name": "Food"}}`
	var e Expense
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, ID("7"), e.ID)
	assert.True(t, e.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, CategoryRef{ID: "3", Name: "Food"}, e.Category)
}

func TestIdentityValid(t *testing.T) {
	assert.True(t, NewIdentity(Account{ID: "u1", Username: "ann", Password: "x"}).Valid())
	assert.False(t, Identity{ID: "u1", Username: "ann"}.Valid())
	assert.False(t, Identity{Username: "ann", Token: PlaceholderToken}.Valid())
	assert.False(t, Identity{}.Valid())
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,5", "1.5", true},
		{" 2.50 ", "2.5", true},
		{".75", "0.75", true},
		{"0", "", false},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"1.2.3", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "input %q got %s", tc.in, got)
	}
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(1235), ToCents(decimal.RequireFromString("12.345")))
	assert.Equal(t, int64(1234), ToCents(decimal.RequireFromString("12.344")))
	assert.Equal(t, "12.34", FromCents(1234).String())
	assert.Equal(t, "7.50", FormatAmount(decimal.RequireFromString("7.5")))
}

func TestToday(t *testing.T) {
	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	assert.Equal(t, "2024-03-10", Today(now))
}

func TestTotalsAndByCategory(t *testing.T) {
	tot := NewTotals(decimal.NewFromInt(100), decimal.RequireFromString("30.5"))
	assert.Equal(t, "69.5", tot.Balance.String())

	expenses := []Expense{
		{ID: "1", Amount: decimal.NewFromInt(10), Category: CategoryRef{ID: "a", Name: "Food"}},
		{ID: "2", Amount: decimal.NewFromInt(40), Category: CategoryRef{ID: "b", Name: "Rent"}},
		{ID: "3", Amount: decimal.NewFromInt(5), Category: CategoryRef{ID: "a", Name: "Food"}},
		{ID: "4", Amount: decimal.NewFromInt(15), Category: CategoryRef{ID: "c"}},
	}
	got := SumByCategory(expenses)
	require.Len(t, got, 3)
	assert.Equal(t, "Rent", got[0].Name)
	// Food and Uncategorized tie at 15; ties sort by name.
	assert.Equal(t, "Food", got[1].Name)
	assert.Equal(t, "15", got[1].Amount.String())
	assert.Equal(t, "Uncategorized", got[2].Name)
}

func TestFindCategory(t *testing.T) {
	cats := []Category{{ID: "c1", Name: "Food"}, {ID: "c2", Name: "Rent"}}
	c, ok := FindCategory(cats, "c2")
	assert.True(t, ok)
	assert.Equal(t, "Rent", c.Name)
	_, ok = FindCategory(cats, "zz")
	assert.False(t, ok)
}

func TestIDMarshal(t *testing.T) {
	tests := map[ID]string{
		"42":        `42`,
		"0":         `0`,
		"007":       `"007"`,
		"srv-1":     `"srv-1"`,
		"":          `""`,
		"123456789": `123456789`,
	}
	for in, want := range tests {
		got, err := json.Marshal(in)
		require.NoError(t, err)
		assert.Equal(t, want, string(got), "id %q", string(in))
	}

	var back Identity
	raw, err := json.Marshal(Identity{ID: "7", Username: "ann", Token: PlaceholderToken})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, ID("7"), back.ID)
}
