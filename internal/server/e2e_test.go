package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts-platform/portal/internal/cli/auth"
	"github.com/ts-platform/portal/internal/cli/client"
	"github.com/ts-platform/portal/internal/config"
	"github.com/ts-platform/portal/internal/models"
	"github.com/ts-platform/portal/internal/server"
)

func startAPI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{
			UploadDir:   filepath.Join(dir, "uploads"),
			CORSOrigins: []string{"http://localhost:5173"},
		},
		Database: config.DatabaseConfig{URL: filepath.Join(dir, "e2e.sqlite")},
		Auth: config.AuthConfig{
			JWTSecret:       "e2e-secret",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
		},
	}

	srv, err := server.New(cfg, zerolog.Nop(), "e2e")
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL + "/api"
}

func loggedInClient(t *testing.T, baseURL, username, password string) (*client.Client, *auth.Store) {
	t.Helper()
	store := auth.NewStore(auth.NewMemoryBackend(), zerolog.Nop())
	c := client.New(baseURL, client.WithStore(store))

	resp, err := c.Login(context.Background(), username, password)
	require.NoError(t, err)
	require.NoError(t, store.SetTokens(auth.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}))
	require.NoError(t, store.SetSession(auth.Session{UserID: resp.User.ID, Role: resp.User.Role, Username: resp.User.Username}))
	return c, store
}

func TestEndToEnd_TeacherGradesStudentSubmission(t *testing.T) {
	baseURL := startAPI(t)
	ctx := context.Background()

	teacher, _ := loggedInClient(t, baseURL, server.SeedTeacherUsername, server.SeedTeacherPassword)
	student, _ := loggedInClient(t, baseURL, server.SeedStudentUsername, server.SeedStudentPassword)

	attachment, err := teacher.UploadFile(ctx, "brief.pdf", strings.NewReader("%PDF-1.4 brief"))
	require.NoError(t, err)
	assert.Equal(t, models.FileKindDocument, attachment.Kind)

	assignment, err := teacher.CreateAssignment(ctx, client.AssignmentInput{
		SubjectID:   "sub-eng-01",
		Title:       "Reading response",
		Deadline:    time.Now().Add(72 * time.Hour),
		MaxScore:    20,
		Attachments: []models.FileAttachment{*attachment},
		TargetType:  models.TargetStudent,
		TargetID:    &[]string{server.SeedStudentID}[0],
	})
	require.NoError(t, err)

	mine, err := student.MyAssignments(ctx)
	require.NoError(t, err)
	var found bool
	for _, a := range mine {
		if a.ID == assignment.ID {
			found = true
			require.NotNil(t, a.TeacherName)
			assert.Equal(t, "Laylo Karimova", *a.TeacherName)
		}
	}
	assert.True(t, found)

	submission, err := student.SubmitAssignment(ctx, assignment.ID, client.SubmitRequest{Text: "My response"})
	require.NoError(t, err)
	assert.False(t, submission.IsLate)

	submissions, err := teacher.ListAssignmentSubmissions(ctx, assignment.ID)
	require.NoError(t, err)
	require.Len(t, submissions, 1)

	grade, err := teacher.GradeSubmission(ctx, client.GradeInput{
		AssignmentID: assignment.ID,
		StudentID:    server.SeedStudentID,
		Score:        18,
	})
	require.NoError(t, err)
	assert.Equal(t, models.GradeFive, grade.Grade)

	grades, err := student.MyGrades(ctx)
	require.NoError(t, err)
	assert.Len(t, grades, 2)

	_, err = student.ListStudents(ctx, "")
	assert.Equal(t, http.StatusForbidden, client.StatusCode(err))
}

func TestEndToEnd_StaleAccessTokenIsRefreshedOnce(t *testing.T) {
	baseURL := startAPI(t)
	ctx := context.Background()

	c, store := loggedInClient(t, baseURL, server.SeedTeacherUsername, server.SeedTeacherPassword)
	tokens, ok := store.Tokens()
	require.True(t, ok)
	require.NoError(t, store.SetTokens(auth.Tokens{AccessToken: "stale", RefreshToken: tokens.RefreshToken}))

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.ListSubjects(ctx)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	rotated, ok := store.Tokens()
	require.True(t, ok)
	assert.NotEqual(t, "stale", rotated.AccessToken)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)
	assert.Zero(t, c.Progress().Count())
}

func TestEndToEnd_RevokedSessionIsCleared(t *testing.T) {
	baseURL := startAPI(t)
	ctx := context.Background()

	c, store := loggedInClient(t, baseURL, server.SeedTeacherUsername, server.SeedTeacherPassword)
	tokens, _ := store.Tokens()
	require.NoError(t, c.Logout(ctx, tokens.RefreshToken))
	require.NoError(t, store.SetTokens(auth.Tokens{AccessToken: "stale", RefreshToken: tokens.RefreshToken}))

	_, err := c.ListSubjects(ctx)
	var refreshErr *client.RefreshError
	require.ErrorAs(t, err, &refreshErr)

	_, ok := store.Tokens()
	assert.False(t, ok)
	_, ok = store.Session()
	assert.False(t, ok)
}
