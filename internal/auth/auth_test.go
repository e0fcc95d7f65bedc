package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts-platform/portal/internal/models"
)

func TestIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Minute)
	require.NoError(t, err)

	user := &models.User{BaseModel: models.BaseModel{ID: "u1"}, Username: "teacher", Role: models.RoleTeacher}
	token, err := issuer.GenerateToken(user)
	require.NoError(t, err)

	claims, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "teacher", claims.Username)
}

func TestIssuer_RejectsExpiredAndForeignTokens(t *testing.T) {
	issuer, err := NewIssuer("secret", time.Minute)
	require.NoError(t, err)
	user := &models.User{BaseModel: models.BaseModel{ID: "u1"}, Role: models.RoleStudent}

	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := issuer.GenerateToken(user)
	require.NoError(t, err)
	issuer.now = time.Now

	_, err = issuer.ValidateToken(expired)
	assert.Error(t, err)

	other, err := NewIssuer("other-secret", time.Minute)
	require.NoError(t, err)
	foreign, err := other.GenerateToken(user)
	require.NoError(t, err)
	_, err = issuer.ValidateToken(foreign)
	assert.Error(t, err)

	_, err = NewIssuer("", time.Minute)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Teacher123!")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword("Teacher123!", hash))
	assert.Error(t, VerifyPassword("teacher123!", hash))
}

func TestNewRefreshToken(t *testing.T) {
	a, hashA, err := NewRefreshToken()
	require.NoError(t, err)
	b, _, err := NewRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, HashRefreshToken(a), hashA)
	assert.NotEqual(t, a, hashA)
}
