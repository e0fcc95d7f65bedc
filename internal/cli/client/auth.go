package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ts-platform/portal/internal/models"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	User               models.User `json:"user"`
	MustChangePassword bool        `json:"mustChangePassword"`
	AccessToken        string      `json:"accessToken"`
	RefreshToken       string      `json:"refreshToken"`
}

// Login authenticates the user and returns the token pair.
// It is sent without stored credentials so a bad password never triggers a refresh.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	req, err := NewJSONRequest(http.MethodPost, "/auth/login", LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	req.Anonymous = true

	var loginResp LoginResponse
	if err := c.Do(ctx, req, &loginResp); err != nil {
		return nil, err
	}
	if loginResp.AccessToken == "" || loginResp.RefreshToken == "" {
		return nil, fmt.Errorf("login response did not include a token pair")
	}
	return &loginResp, nil
}

// Logout revokes the refresh token on the server
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.Post(ctx, "/auth/logout", map[string]string{"refreshToken": refreshToken}, nil)
}

// ChangePasswordRequest represents the change-password request body
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword replaces the current user's password
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return c.Post(ctx, "/auth/change-password", ChangePasswordRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	}, nil)
}

// Me returns the current user. Students also get their groups.
func (c *Client) Me(ctx context.Context) (*models.StudentProfile, error) {
	var profile models.StudentProfile
	if err := c.Get(ctx, "/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ProfileUpdate is a partial profile change; nil fields are left untouched
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Username  *string `json:"username,omitempty"`
}

// UpdateProfile changes the current student's profile
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*models.User, error) {
	var user models.User
	if err := c.Put(ctx, "/student/profile", update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
