package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ts-platform/portal/internal/models"
)

const (
	SessionKey = "ts-platform-session"
	TokensKey  = "ts-platform-tokens"
)

// Session is the cached identity of the logged-in user.
// The server stays the source of truth; this only drives display and routing.
type Session struct {
	UserID   string      `json:"userId"`
	Role     models.Role `json:"role"`
	Username string      `json:"username"`
}

func (s Session) valid() bool {
	return s.UserID != "" && s.Role != "" && s.Username != ""
}

// Tokens is the access/refresh credential pair. Both fields are present or the pair is absent.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (t Tokens) valid() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// Store reads and writes the session and token pair.
// A Store without a backend reports absence and ignores writes.
type Store struct {
	backend Backend
	logger  zerolog.Logger
}

// NewStore creates a store on top of backend (which may be nil)
func NewStore(backend Backend, logger zerolog.Logger) *Store {
	return &Store{backend: backend, logger: logger}
}

// Session returns the stored session, or false when missing or malformed
func (s *Store) Session() (Session, bool) {
	var session Session
	if !s.read(SessionKey, &session) || !session.valid() {
		return Session{}, false
	}
	return session, true
}

// SetSession replaces the stored session
func (s *Store) SetSession(session Session) error {
	return s.write(SessionKey, session)
}

// ClearSession removes the stored session
func (s *Store) ClearSession() error {
	return s.remove(SessionKey)
}

// Tokens returns the stored token pair, or false when missing, partial or malformed
func (s *Store) Tokens() (Tokens, bool) {
	var tokens Tokens
	if !s.read(TokensKey, &tokens) || !tokens.valid() {
		return Tokens{}, false
	}
	return tokens, true
}

// SetTokens replaces the stored token pair
func (s *Store) SetTokens(tokens Tokens) error {
	return s.write(TokensKey, tokens)
}

// ClearTokens removes the stored token pair
func (s *Store) ClearTokens() error {
	return s.remove(TokensKey)
}

// Clear removes both the session and the token pair
func (s *Store) Clear() error {
	return errors.Join(s.ClearTokens(), s.ClearSession())
}

func (s *Store) read(key string, dst any) bool {
	if s == nil || s.backend == nil {
		return false
	}

	raw, err := s.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Debug().Err(err).Str("key", key).Msg("Credential storage unavailable")
		}
		return false
	}
	if raw == "" {
		return false
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("Ignoring malformed stored value")
		return false
	}
	return true
}

func (s *Store) write(key string, value any) error {
	if s == nil || s.backend == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.backend.Set(key, string(data))
}

func (s *Store) remove(key string) error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Delete(key)
}
