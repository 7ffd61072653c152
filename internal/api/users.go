package api

import (
	"context"
	"net/http"

	"fintrack/internal/core"
)

// FindUser looks up accounts by username. The password comparison is left
// to the caller.
func (c *Client) FindUser(ctx context.Context, username string) ([]core.Account, error) {
	var out struct {
		Users []core.Account `json:"users"`
	}
	body := map[string]string{"username": username}
	if err := c.doJSON(ctx, http.MethodPost, "/login", nil, body, &out, "Login failed. Please check your credentials."); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// CreateUser registers an account and returns its id when the server sends one.
func (c *Client) CreateUser(ctx context.Context, username, password string) (core.ID, error) {
	var out mutationResult
	body := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/createuser", nil, body, &out, "Signup failed. Please try again."); err != nil {
		return "", err
	}
	return out.insertedID(), nil
}
