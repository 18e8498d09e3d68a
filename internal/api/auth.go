package api

import (
	"context"
	"net/http"

	"github.com/amirk1998/notedeck/internal/models"
)

// Login exchanges credentials for a user and access token
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "auth", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns the user and access token
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", "auth", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout notifies the server that the session ended. Best effort; the
// caller clears local state regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", "auth", nil, nil)
}

// Verify re-validates the current token with the server
func (c *Client) Verify(ctx context.Context) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/verify", "auth", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}
