package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// Categories

func (c *Client) ListCategories(ctx context.Context, userID core.ID) ([]core.Category, error) {
	var out struct {
		Categories []core.Category `json:"categories"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/getcategories", ownerQuery(userID.String()), nil, &out, "Failed to fetch categories"); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// CategoriesDropdown lists the categories offered by the expense form.
func (c *Client) CategoriesDropdown(ctx context.Context, userID core.ID) ([]core.Category, error) {
	var out struct {
		Categories []core.Category `json:"categories"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/getcategoriesdropdownbyuser", ownerQuery(userID.String()), nil, &out, "Failed to load categories for dropdown"); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) AddCategory(ctx context.Context, userID core.ID, name string) (core.ID, error) {
	body := struct {
		Name   string  `json:"name"`
		UserID core.ID `json:"user_id"`
	}{name, userID}
	var out mutationResult
	if err := c.doJSON(ctx, http.MethodPost, "/addcategory", nil, body, &out, "Failed to add category"); err != nil {
		return "", err
	}
	return out.insertedID(), nil
}

func (c *Client) UpdateCategory(ctx context.Context, userID, id core.ID, name string) (int, error) {
	body := struct {
		ID     core.ID `json:"id"`
		UserID core.ID `json:"user_id"`
		Name   string  `json:"name"`
	}{id, userID, name}
	var out mutationResult
	if err := c.doJSON(ctx, http.MethodPost, "/updatecategory", nil, body, &out, "Failed to update category"); err != nil {
		return 0, err
	}
	return out.affectedRows("update_categories"), nil
}

func (c *Client) DeleteCategory(ctx context.Context, userID, id core.ID) (int, error) {
	var out mutationResult
	if err := c.doJSON(ctx, http.MethodDelete, "/deletecategory", recordQuery(id.String(), userID.String()), nil, &out, "Failed to delete category"); err != nil {
		return 0, err
	}
	return out.affectedRows("delete_categories"), nil
}

// Incomes

func (c *Client) ListIncomes(ctx context.Context, userID core.ID) ([]core.Income, error) {
	var out struct {
		Income []core.Income `json:"income"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/getincomes", ownerQuery(userID.String()), nil, &out, "Failed to fetch incomes"); err != nil {
		return nil, err
	}
	return out.Income, nil
}

func (c *Client) AddIncome(ctx context.Context, userID core.ID, amt decimal.Decimal) (core.ID, error) {
	body := struct {
		Amount json.Number `json:"income_amt"`
		UserID core.ID     `json:"user_id"`
	}{amount(amt), userID}
	var out mutationResult
	if err := c.doJSON(ctx, http.MethodPost, "/addincome", nil, body, &out, "Failed to add income"); err != nil {
		return "", err
	}
	return out.insertedID(), nil
}

func (c *Client) UpdateIncome(ctx context.Context, userID, id core.ID, amt decimal.Decimal) (int, error) {
	body := struct {
		ID     core.ID     `json:"id"`
		UserID core.ID     `json:"user_id"`
		Amount json.Number `json:"income_amt"`
	}{id, userID, amount(amt)}
	var out mutationResult
	if err := c.doJSON(ctx, http.MethodPost, "/updateincome", nil, body, &out, "Failed to update income"); err != nil {
		return 0, err
	}
	return out.affectedRows("update_income"), nil
}

func (c *Client) DeleteIncome(ctx context.Context, userID, id core.ID) (int, error) {
	var out mutationResult
	if err := c.doJSON(ctx, http.MethodDelete, "/deleteincome", recordQuery(id.String(), userID.String()), nil, &out, "Failed to delete income"); err != nil {
		return 0, err
	}
	return out.affectedRows("delete_income"), nil
}

// Expenses

func (c *Client) ListExpenses(ctx context.Context, userID core.ID) ([]core.Expense, error) {
	var out struct {
		Expense []core.Expense `json:"expense"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/getuserexpenseswithcategory", ownerQuery(userID.String()), nil, &out, "Failed to fetch expenses"); err != nil {
		return nil, err
	}
	return out.Expense, nil
}

func (c *Client) AddExpense(ctx context.Context, userID core.ID, amt decimal.Decimal, categoryID core.ID) (core.ID, error) {
	body := struct {
		Amount     json.Number `json:"expense_amt"`
		UserID     core.ID     `json:"user_id"`
		CategoryID core.ID     `json:"category_id"`
	}{amount(amt), userID, categoryID}
	var out mutationResult
	if err := c.doJSON(ctx, http.MethodPost, "/addexpense", nil, body, &out, "Failed to add expense"); err != nil {
		return "", err
	}
	return out.insertedID(), nil
}

func (c *Client) UpdateExpense(ctx context.Context, userID, id core.ID, amt decimal.Decimal, categoryID core.ID) (int, error) {
	body := struct {
		ID         core.ID     `json:"id"`
		UserID     core.ID     `json:"user_id"`
		Amount     json.Number `json:"expense_amt"`
		CategoryID core.ID     `json:"category_id"`
	}{id, userID, amount(amt), categoryID}
	var out mutationResult
	if err := c.doJSON(ctx, http.MethodPost, "/updateexpense", nil, body, &out, "Failed to update expense"); err != nil {
		return 0, err
	}
	return out.affectedRows("update_expense"), nil
}

func (c *Client) DeleteExpense(ctx context.Context, userID, id core.ID) (int, error) {
	var out mutationResult
	if err := c.doJSON(ctx, http.MethodDelete, "/deleteexpense", recordQuery(id.String(), userID.String()), nil, &out, "Failed to delete expense"); err != nil {
		return 0, err
	}
	return out.affectedRows("delete_expense"), nil
}
