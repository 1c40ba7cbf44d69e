package storeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Credentials is the body of the login and register endpoints
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Admin is the identity block returned on login
type Admin struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// AuthResponse represents the login/register response
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Admin   *Admin `json:"admin,omitempty"`
}

// CheckAdmin asks the store API who the jar's session belongs to. It returns
// the admin identity, ErrNotAuthenticated when the API answers without one,
// or the transport/decode error.
func (c *Client) CheckAdmin(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/admin/get-admin", nil, "")
	if err != nil {
		return "", err
	}
	return ExtractIdentity(data)
}

// Login exchanges credentials for a store API session cookie
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return c.authenticate(ctx, "/api/admin/adminLogin", creds)
}

// Register creates an admin account. It does not log in.
func (c *Client) Register(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return c.authenticate(ctx, "/api/admin/register", creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds Credentials) (*AuthResponse, error) {
	data, err := c.postJSON(ctx, path, creds)
	if err != nil {
		return nil, err
	}

	var authResp AuthResponse
	if err := json.Unmarshal(data, &authResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !authResp.Success {
		return nil, &APIError{Status: http.StatusOK, Message: authResp.Message}
	}

	return &authResp, nil
}

// Logout ends the store API session
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/api/admin/adminLogout", nil, "", nil)
	return err
}
