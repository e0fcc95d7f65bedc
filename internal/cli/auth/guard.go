package auth

import (
	"fmt"

	"github.com/ts-platform/portal/internal/models"
)

// DenyReason explains why a role check failed
type DenyReason string

const (
	ReasonNoSession DenyReason = "no-session"
	ReasonForbidden DenyReason = "forbidden"
)

// RoleCheck is the outcome of RequireRole
type RoleCheck struct {
	Session Session
	Allowed bool
	Reason  DenyReason
}

// RequireRole checks the stored session against role
func (s *Store) RequireRole(role models.Role) RoleCheck {
	session, ok := s.Session()
	if !ok {
		return RoleCheck{Reason: ReasonNoSession}
	}
	if session.Role != role {
		return RoleCheck{Session: session, Reason: ReasonForbidden}
	}
	return RoleCheck{Session: session, Allowed: true}
}

// Err converts a failed check into a user-facing error
func (c RoleCheck) Err(role models.Role) error {
	switch {
	case c.Allowed:
		return nil
	case c.Reason == ReasonNoSession:
		return fmt.Errorf("not authenticated. Please run 'tsp login' first")
	default:
		return fmt.Errorf("this command requires the %s role (logged in as %s, %s)", role, c.Session.Username, c.Session.Role)
	}
}
