package commands

import (
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts-platform/portal/internal/cli/auth"
	"github.com/ts-platform/portal/internal/cli/client"
	"github.com/ts-platform/portal/internal/cli/config"
	apiconfig "github.com/ts-platform/portal/internal/config"
	"github.com/ts-platform/portal/internal/server"
)

// newMockAPIEnv wires commands to a seeded mock API
func newMockAPIEnv(t *testing.T) []Option {
	t.Helper()
	dir := t.TempDir()
	srv, err := server.New(&apiconfig.Config{
		Server:   apiconfig.ServerConfig{UploadDir: filepath.Join(dir, "uploads")},
		Database: apiconfig.DatabaseConfig{URL: filepath.Join(dir, "api.sqlite")},
		Auth: apiconfig.AuthConfig{
			JWTSecret:       "cli-test-secret",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
		},
	}, zerolog.Nop(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	store := auth.NewStore(auth.NewMemoryBackend(), zerolog.Nop())
	settings := &config.Settings{
		ServerName: "mock",
		APIURL:     ts.URL + "/api",
		WebURL:     "http://localhost:5173",
		Storage:    config.StorageFile,
		Timeout:    5 * time.Second,
	}
	return []Option{
		WithConfig(config.DefaultConfig(), filepath.Join(dir, "config.yaml")),
		WithServer(settings),
		WithTokenStore(store),
		WithAPIClient(client.New(settings.APIURL, client.WithStore(store))),
	}
}

func TestMockAPI_TeacherSession(t *testing.T) {
	opts := newMockAPIEnv(t)
	t.Setenv(config.EnvUsername, server.SeedTeacherUsername)
	t.Setenv(config.EnvPassword, server.SeedTeacherPassword)

	out, err := execute(NewLoginCmd(opts...))
	require.NoError(t, err)
	assert.Contains(t, out, "Login successful")

	out, err = execute(NewSubjectsCmd(opts...))
	require.NoError(t, err)
	assert.Contains(t, out, "Applied Mathematics")
	assert.Contains(t, out, "ENG-110")

	out, err = execute(NewDashboardCmd(opts...))
	require.NoError(t, err)
	assert.Contains(t, out, "Students:          1")
	assert.Contains(t, out, "Assignments:       3")
	assert.Contains(t, out, "Upcoming lessons:  2")
	assert.Contains(t, out, "User flows & testing")
	assert.Contains(t, out, "Academic English")
	assert.NotContains(t, out, "Optimization strategies")

	_, err = execute(NewAttendanceCmd(opts...), "mark", "lesson-03", server.SeedStudentID+"=late")
	require.NoError(t, err)

	out, err = execute(NewAttendanceCmd(opts...), "show", "lesson-03")
	require.NoError(t, err)
	assert.Contains(t, out, "LATE")

	// Student-only commands stop at the role guard
	_, err = execute(NewMeCmd(opts...), "grades")
	require.Error(t, err)

	out, err = execute(NewLogoutCmd(opts...))
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = execute(NewSubjectsCmd(opts...))
	require.Error(t, err)
}

func TestMockAPI_StudentDashboard(t *testing.T) {
	opts := newMockAPIEnv(t)
	t.Setenv(config.EnvUsername, server.SeedStudentUsername)
	t.Setenv(config.EnvPassword, server.SeedStudentPassword)

	_, err := execute(NewLoginCmd(opts...))
	require.NoError(t, err)

	out, err := execute(NewDashboardCmd(opts...))
	require.NoError(t, err)
	assert.Contains(t, out, "Absent:   0")
	assert.Contains(t, out, "On time:  1")
	assert.Contains(t, out, "Late:     1")
	assert.Contains(t, out, "Linear regression lab")
	assert.Contains(t, out, "Essay outline")
	assert.Contains(t, out, "Applied Mathematics")

	// the overdue critique only shows up under its grade
	deadlines, grades, found := strings.Cut(out, "Latest grades")
	require.True(t, found)
	assert.NotContains(t, deadlines, "Prototype critique")
	assert.Contains(t, grades, "Prototype critique")
	assert.Contains(t, grades, "5")
}
