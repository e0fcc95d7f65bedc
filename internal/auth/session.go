package auth

import "github.com/ts-platform/portal/internal/models"

// SessionData represents the authenticated session context for a request
type SessionData struct {
	UserID   string      `json:"userId"`
	Role     models.Role `json:"role"`
	Username string      `json:"username"`
}
