package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/ts-platform/portal/internal/models"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	keyring.MockInit()

	return map[string]Backend{
		"memory":  NewMemoryBackend(),
		"file":    NewFileBackend(filepath.Join(t.TempDir(), "state", "default.json")),
		"keyring": NewKeyringBackend(t.Name()),
	}
}

func TestStore_TokensRoundTrip(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(backend, zerolog.Nop())

			require.NoError(t, store.SetTokens(Tokens{AccessToken: "a", RefreshToken: "b"}))

			tokens, ok := store.Tokens()
			require.True(t, ok)
			assert.Equal(t, Tokens{AccessToken: "a", RefreshToken: "b"}, tokens)
		})
	}
}

func TestStore_SessionRoundTripAndClear(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(backend, zerolog.Nop())
			session := Session{UserID: "user-1", Role: models.RoleTeacher, Username: "teacher"}

			require.NoError(t, store.SetSession(session))
			got, ok := store.Session()
			require.True(t, ok)
			assert.Equal(t, session, got)

			require.NoError(t, store.ClearSession())
			_, ok = store.Session()
			assert.False(t, ok)

			// clearing twice is fine
			require.NoError(t, store.ClearSession())
		})
	}
}

func TestStore_SetOverwritesWholesale(t *testing.T) {
	store := NewStore(NewMemoryBackend(), zerolog.Nop())

	require.NoError(t, store.SetTokens(Tokens{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, store.SetTokens(Tokens{AccessToken: "a2", RefreshToken: "r2"}))

	tokens, ok := store.Tokens()
	require.True(t, ok)
	assert.Equal(t, Tokens{AccessToken: "a2", RefreshToken: "r2"}, tokens)
}

func TestStore_MalformedSessionIsAbsent(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Set(SessionKey, "{not json"))
	store := NewStore(backend, zerolog.Nop())

	session, ok := store.Session()
	assert.False(t, ok)
	assert.Equal(t, Session{}, session)
}

func TestStore_IncompleteValuesAreAbsent(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Set(SessionKey, `{"userId":"user-1","username":"teacher"}`))
	require.NoError(t, backend.Set(TokensKey, `{"accessToken":"a"}`))
	store := NewStore(backend, zerolog.Nop())

	_, ok := store.Session()
	assert.False(t, ok)

	_, ok = store.Tokens()
	assert.False(t, ok)
}

func TestStore_NoBackendIsNoop(t *testing.T) {
	store := NewStore(nil, zerolog.Nop())

	require.NoError(t, store.SetTokens(Tokens{AccessToken: "a", RefreshToken: "b"}))
	require.NoError(t, store.SetSession(Session{UserID: "u", Role: models.RoleStudent, Username: "s"}))
	require.NoError(t, store.Clear())

	_, ok := store.Tokens()
	assert.False(t, ok)
	_, ok = store.Session()
	assert.False(t, ok)
}

func TestStore_ClearRemovesBoth(t *testing.T) {
	store := NewStore(NewMemoryBackend(), zerolog.Nop())
	require.NoError(t, store.SetTokens(Tokens{AccessToken: "a", RefreshToken: "b"}))
	require.NoError(t, store.SetSession(Session{UserID: "u", Role: models.RoleStudent, Username: "s"}))

	require.NoError(t, store.Clear())

	_, ok := store.Tokens()
	assert.False(t, ok)
	_, ok = store.Session()
	assert.False(t, ok)
}

func TestFileBackend_PermissionsAndCleanup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	backend := NewFileBackend(path)

	require.NoError(t, backend.Set(TokensKey, `{"accessToken":"a","refreshToken":"b"}`))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, backend.Delete(TokensKey))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "state file should be removed once empty")
}

func TestFileBackend_CorruptFileReadsAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
	store := NewStore(NewFileBackend(path), zerolog.Nop())

	_, ok := store.Tokens()
	assert.False(t, ok)

	// a write replaces the corrupt file
	require.NoError(t, store.SetTokens(Tokens{AccessToken: "a", RefreshToken: "b"}))
	_, ok = store.Tokens()
	assert.True(t, ok)
}

func TestKeyringBackend_NamespacesAreIsolated(t *testing.T) {
	keyring.MockInit()
	first := NewStore(NewKeyringBackend("school-a"), zerolog.Nop())
	second := NewStore(NewKeyringBackend("school-b"), zerolog.Nop())

	require.NoError(t, first.SetTokens(Tokens{AccessToken: "a", RefreshToken: "b"}))

	_, ok := second.Tokens()
	assert.False(t, ok)
}

func TestRequireRole(t *testing.T) {
	store := NewStore(NewMemoryBackend(), zerolog.Nop())

	check := store.RequireRole(models.RoleTeacher)
	assert.False(t, check.Allowed)
	assert.Equal(t, ReasonNoSession, check.Reason)
	assert.ErrorContains(t, check.Err(models.RoleTeacher), "tsp login")

	require.NoError(t, store.SetSession(Session{UserID: "u", Role: models.RoleStudent, Username: "student"}))

	check = store.RequireRole(models.RoleTeacher)
	assert.False(t, check.Allowed)
	assert.Equal(t, ReasonForbidden, check.Reason)
	assert.ErrorContains(t, check.Err(models.RoleTeacher), "requires the TEACHER role")

	check = store.RequireRole(models.RoleStudent)
	assert.True(t, check.Allowed)
	assert.NoError(t, check.Err(models.RoleStudent))
}
