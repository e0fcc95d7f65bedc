package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts-platform/portal/internal/config"
	"github.com/ts-platform/portal/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Port:        "0",
			UploadDir:   filepath.Join(dir, "uploads"),
			CORSOrigins: []string{"http://localhost:5173"},
		},
		Database: config.DatabaseConfig{URL: filepath.Join(dir, "test.sqlite")},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			AccessTokenTTL:  time.Minute,
			RefreshTokenTTL: time.Hour,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "console"},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWithConfig(t, testConfig(t))
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// do sends a JSON request and returns the recorder
func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func login(t *testing.T, s *Server, username, password string) LoginResponse {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[LoginResponse](t, rec)
}

func teacherToken(t *testing.T, s *Server) string {
	return login(t, s, SeedTeacherUsername, SeedTeacherPassword).AccessToken
}

func studentToken(t *testing.T, s *Server) string {
	return login(t, s, SeedStudentUsername, SeedStudentPassword).AccessToken
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestSeed_DemoDataAndIdempotence(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServerWithConfig(t, cfg)

	var subjects, assignments int64
	require.NoError(t, s.GetDB().Model(&models.Subject{}).Count(&subjects).Error)
	require.NoError(t, s.GetDB().Model(&models.Assignment{}).Count(&assignments).Error)
	assert.EqualValues(t, 3, subjects)
	assert.EqualValues(t, 3, assignments)

	var grade models.Grade
	require.NoError(t, s.GetDB().Where("id = ?", "grade-01").First(&grade).Error)
	assert.Equal(t, 86, grade.Score)
	assert.Equal(t, models.ScaleFor(86, 100), grade.Grade)

	require.NoError(t, s.Close())

	// Reopening the same database must not seed twice
	again := newTestServerWithConfig(t, cfg)
	var users int64
	require.NoError(t, again.GetDB().Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 2, users)
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	resp := login(t, s, SeedStudentUsername, SeedStudentPassword)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, resp.MustChangePassword)
	assert.Equal(t, models.RoleStudent, resp.User.Role)
	assert.Equal(t, SeedStudentID, resp.User.ID)

	rec := do(t, s, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "student", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", errorMessage(t, rec))

	rec = do(t, s, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "nobody", Password: "Whatever1!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "student"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh_RotatesAndRevokes(t *testing.T) {
	s := newTestServer(t)
	first := login(t, s, SeedTeacherUsername, SeedTeacherPassword)

	rec := do(t, s, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: first.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decode[RefreshResponse](t, rec)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, first.RefreshToken, rotated.RefreshToken)

	// The used token is revoked
	rec = do(t, s, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/me", rotated.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_ExpiredTokenRejected(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.RefreshTokenTTL = -time.Minute
	s := newTestServerWithConfig(t, cfg)

	resp := login(t, s, SeedTeacherUsername, SeedTeacherPassword)
	rec := do(t, s, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	s := newTestServer(t)
	resp := login(t, s, SeedTeacherUsername, SeedTeacherPassword)

	rec := do(t, s, http.MethodPost, "/api/auth/logout", "", RefreshRequest{RefreshToken: resp.RefreshToken})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown tokens are accepted silently
	rec = do(t, s, http.MethodPost, "/api/auth/logout", "", RefreshRequest{RefreshToken: "unknown"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing authorization header", errorMessage(t, rec))

	rec = do(t, s, http.MethodGet, "/api/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", errorMessage(t, rec))
}

func TestRoleMiddleware(t *testing.T) {
	s := newTestServer(t)
	student := studentToken(t, s)
	teacher := teacherToken(t, s)

	rec := do(t, s, http.MethodGet, "/api/teacher/students", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/student/assignments", teacher, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Both roles read subjects
	for _, token := range []string{student, teacher} {
		rec = do(t, s, http.MethodGet, "/api/subjects", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/student/subjects", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Subject](t, rec), 3)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	token := studentToken(t, s)

	rec := do(t, s, http.MethodPost, "/api/auth/change-password", token, ChangePasswordRequest{
		OldPassword: SeedStudentPassword,
		NewPassword: "weak",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "password must contain")

	rec = do(t, s, http.MethodPost, "/api/auth/change-password", token, ChangePasswordRequest{
		OldPassword: "Wrong123!",
		NewPassword: "Brand-New1",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Current password is incorrect", errorMessage(t, rec))

	rec = do(t, s, http.MethodPost, "/api/auth/change-password", token, ChangePasswordRequest{
		OldPassword: SeedStudentPassword,
		NewPassword: "Brand-New1",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	resp := login(t, s, SeedStudentUsername, "Brand-New1")
	assert.False(t, resp.MustChangePassword)
}

func TestMe_StudentIncludesGroups(t *testing.T) {
	s := newTestServer(t)
	teacher := teacherToken(t, s)

	rec := do(t, s, http.MethodPost, "/api/teacher/groups", teacher, GroupRequest{Name: "Design A", Code: "DES-A"})
	require.Equal(t, http.StatusCreated, rec.Code)
	group := decode[models.Group](t, rec)

	rec = do(t, s, http.MethodPost, "/api/teacher/groups/"+group.ID+"/members", teacher, AddMemberRequest{StudentID: SeedStudentID})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Adding twice is a no-op
	rec = do(t, s, http.MethodPost, "/api/teacher/groups/"+group.ID+"/members", teacher, AddMemberRequest{StudentID: SeedStudentID})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/me", studentToken(t, s), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[models.StudentProfile](t, rec)
	require.Len(t, profile.Groups, 1)
	assert.Equal(t, "Design A", profile.Groups[0].Name)

	rec = do(t, s, http.MethodGet, "/api/teacher/students/"+SeedStudentID+"/groups", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	refs := decode[[]models.GroupRef](t, rec)
	assert.Equal(t, []models.GroupRef{{ID: group.ID, Name: "Design A"}}, refs)

	rec = do(t, s, http.MethodGet, "/api/teacher/students?groupId="+group.ID, teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.User](t, rec), 1)

	rec = do(t, s, http.MethodDelete, "/api/teacher/groups/"+group.ID+"/members/"+SeedStudentID, teacher, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/teacher/groups/"+group.ID+"/members/"+SeedStudentID, teacher, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	token := studentToken(t, s)

	name := "Azizbek"
	rec := do(t, s, http.MethodPut, "/api/student/profile", token, ProfileUpdateRequest{FirstName: &name})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode[models.User](t, rec)
	assert.Equal(t, "Azizbek", user.FirstName)
	assert.Equal(t, "Saidov", user.LastName)

	taken := SeedTeacherUsername
	rec = do(t, s, http.MethodPut, "/api/student/profile", token, ProfileUpdateRequest{Username: &taken})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubjects_CRUD(t *testing.T) {
	s := newTestServer(t)
	token := teacherToken(t, s)

	rec := do(t, s, http.MethodPost, "/api/subjects", token, SubjectRequest{Name: "Physics", Code: "PHY-101"})
	require.Equal(t, http.StatusCreated, rec.Code)
	subject := decode[models.Subject](t, rec)
	assert.Equal(t, SeedTeacherID, subject.TeacherID)

	rec = do(t, s, http.MethodPut, "/api/subjects/"+subject.ID, token, SubjectRequest{Name: "Physics I"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Subject](t, rec)
	assert.Equal(t, "Physics I", updated.Name)
	assert.Equal(t, "PHY-101", updated.Code)

	rec = do(t, s, http.MethodDelete, "/api/subjects/"+subject.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/subjects/"+subject.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/subjects", token, SubjectRequest{Name: "No code"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStudentAndResetPassword(t *testing.T) {
	s := newTestServer(t)
	token := teacherToken(t, s)

	rec := do(t, s, http.MethodPost, "/api/teacher/students", token, CreateStudentRequest{
		FirstName: "Nodira", LastName: "Yusupova", Username: "nodira", Password: "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/teacher/students", token, CreateStudentRequest{
		FirstName: "Nodira", LastName: "Yusupova", Username: "nodira", Password: "Start-123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	student := decode[models.User](t, rec)
	assert.Equal(t, models.RoleStudent, student.Role)
	assert.True(t, student.MustChangePassword)

	rec = do(t, s, http.MethodPost, "/api/teacher/students", token, CreateStudentRequest{
		FirstName: "Other", LastName: "Person", Username: "nodira", Password: "Start-123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	session := login(t, s, "nodira", "Start-123")

	rec = do(t, s, http.MethodPost, "/api/teacher/students/"+student.ID+"/reset-password", token, ResetPasswordRequest{Password: "Reset-456"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Existing sessions cannot refresh after a reset
	rec = do(t, s, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: session.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, login(t, s, "nodira", "Reset-456").MustChangePassword)

	rec = do(t, s, http.MethodGet, "/api/teacher/students/"+SeedTeacherID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendance_Upsert(t *testing.T) {
	s := newTestServer(t)
	token := teacherToken(t, s)

	rec := do(t, s, http.MethodPost, "/api/lessons/lesson-01/attendance", token, []models.AttendanceEntry{
		{StudentID: SeedStudentID, Status: models.AttendanceAbsent},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	records := decode[[]models.AttendanceRecord](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, models.AttendanceAbsent, records[0].Status)

	rec = do(t, s, http.MethodPost, "/api/lessons/lesson-01/attendance", token, []map[string]string{
		{"studentId": SeedStudentID, "status": "PRESENT"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/lessons/lesson-01/attendance", token, []models.AttendanceEntry{
		{StudentID: "ghost", Status: models.AttendanceLate},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/student/attendance", studentToken(t, s), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]models.AttendanceRecord](t, rec)
	assert.Len(t, mine, 2)
}

func TestGrade_UpsertAndScale(t *testing.T) {
	s := newTestServer(t)
	token := teacherToken(t, s)

	score := 60
	rec := do(t, s, http.MethodPost, "/api/assignments/assign-02/grade", token, GradeRequest{StudentID: SeedStudentID, Score: &score})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	grade := decode[models.Grade](t, rec)
	assert.Equal(t, "grade-01", grade.ID)
	assert.Equal(t, models.GradeThree, grade.Grade)

	over := 101
	rec = do(t, s, http.MethodPost, "/api/assignments/assign-02/grade", token, GradeRequest{StudentID: SeedStudentID, Score: &over})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/assignments/assign-02/grades", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	grades := decode[[]models.Grade](t, rec)
	require.Len(t, grades, 1)
	assert.Equal(t, 60, grades[0].Score)
}

func TestGrade_RegradeReturnsStoredRow(t *testing.T) {
	s := newTestServer(t)
	token := teacherToken(t, s)

	for _, score := range []int{40, 90} {
		rec := do(t, s, http.MethodPost, "/api/assignments/assign-02/grade", token, GradeRequest{StudentID: SeedStudentID, Score: &score})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		grade := decode[models.Grade](t, rec)
		assert.Equal(t, "grade-01", grade.ID)
		assert.Equal(t, score, grade.Score)
		assert.Equal(t, models.ScaleFor(score, 100), grade.Grade)
	}

	rec := do(t, s, http.MethodGet, "/api/assignments/assign-02/grades", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	grades := decode[[]models.Grade](t, rec)
	require.Len(t, grades, 1)
	assert.Equal(t, 90, grades[0].Score)
	assert.Equal(t, models.GradeFive, grades[0].Grade)
}

func TestAssignments_TargetVisibility(t *testing.T) {
	s := newTestServer(t)
	teacher := teacherToken(t, s)
	student := studentToken(t, s)

	rec := do(t, s, http.MethodPost, "/api/teacher/groups", teacher, GroupRequest{Name: "Math B", Code: "MATH-B"})
	require.Equal(t, http.StatusCreated, rec.Code)
	group := decode[models.Group](t, rec)

	rec = do(t, s, http.MethodPost, "/api/assignments", teacher, AssignmentRequest{
		SubjectID:  "sub-math-01",
		Title:      "Group only",
		Deadline:   time.Now().Add(48 * time.Hour),
		MaxScore:   10,
		TargetType: models.TargetGroup,
		TargetID:   &group.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	targeted := decode[models.Assignment](t, rec)

	visible := func() []string {
		rec := do(t, s, http.MethodGet, "/api/student/assignments", student, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var ids []string
		for _, a := range decode[[]models.Assignment](t, rec) {
			ids = append(ids, a.ID)
		}
		return ids
	}
	assert.NotContains(t, visible(), targeted.ID)
	assert.Contains(t, visible(), "assign-01")

	rec = do(t, s, http.MethodPost, "/api/teacher/groups/"+group.ID+"/members", teacher, AddMemberRequest{StudentID: SeedStudentID})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, visible(), targeted.ID)

	missing := "nope"
	rec = do(t, s, http.MethodPost, "/api/assignments", teacher, AssignmentRequest{
		SubjectID:  "sub-math-01",
		Title:      "Bad target",
		Deadline:   time.Now(),
		MaxScore:   10,
		TargetType: models.TargetStudent,
		TargetID:   &missing,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_LateFlagAndUpsert(t *testing.T) {
	s := newTestServer(t)
	token := studentToken(t, s)

	rec := do(t, s, http.MethodPost, "/api/student/assignments/assign-01/submit", token, SubmitRequest{Text: "draft"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[models.Submission](t, rec)
	assert.False(t, first.IsLate)

	rec = do(t, s, http.MethodPost, "/api/student/assignments/assign-01/submit", token, SubmitRequest{
		Text:      "final",
		SheetJSON: json.RawMessage(`{"cells":[1,2]}`),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[models.Submission](t, rec)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "final", second.Text)
	assert.JSONEq(t, `{"cells":[1,2]}`, string(second.SheetJSON))

	rec = do(t, s, http.MethodPost, "/api/student/assignments/assign-02/submit", token, SubmitRequest{Text: "resubmitted"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.Submission](t, rec).IsLate)

	rec = do(t, s, http.MethodPost, "/api/student/assignments/assign-03/submit", token, SubmitRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/student/assignments/missing/submit", token, SubmitRequest{Text: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/student/submissions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Submission](t, rec), 2)
}

// upload posts content as the multipart "file" field
func upload(t *testing.T, s *Server, token, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestFiles_UploadAndDownload(t *testing.T) {
	s := newTestServer(t)
	token := teacherToken(t, s)

	rec := upload(t, s, token, "notes.pdf", []byte("%PDF-1.4 test"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	attachment := decode[models.FileAttachment](t, rec)
	assert.Equal(t, "notes.pdf", attachment.Name)
	assert.Equal(t, "application/pdf", attachment.MimeType)
	assert.Equal(t, models.FileKindDocument, attachment.Kind)
	assert.EqualValues(t, 1, attachment.SizeKB)
	assert.Equal(t, "/api/files/"+attachment.ID, attachment.URL)

	rec = do(t, s, http.MethodGet, attachment.URL, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 test", rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/files", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFiles_FailedUploadLeavesNoFile(t *testing.T) {
	s := newTestServer(t)
	token := teacherToken(t, s)
	require.NoError(t, s.GetDB().Migrator().DropTable(&models.FileAttachment{}))

	rec := upload(t, s, token, "notes.pdf", []byte("%PDF-1.4 test"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entries, err := os.ReadDir(s.config.Server.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileKind(t *testing.T) {
	cases := map[string]models.FileKind{
		"video/mp4":       models.FileKindVideo,
		"application/pdf": models.FileKindDocument,
		"text/csv":        models.FileKindDocument,
		"application/vnd.openxmlformats-officedocument.presentationml.presentation": models.FileKindSlides,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   models.FileKindDocument,
		"application/zip": models.FileKindArchive,
		"image/png":       models.FileKindOther,
	}
	for mimeType, want := range cases {
		assert.Equal(t, want, fileKind(mimeType), mimeType)
	}
}

func TestErrorInjection(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.ErrorRate = 0.5
	s := newTestServerWithConfig(t, cfg)

	// Login is never failed
	s.failRoll = func() float64 { return 0 }
	token := teacherToken(t, s)

	rec := do(t, s, http.MethodGet, "/api/subjects", token, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, mockErrorMessage, errorMessage(t, rec))

	s.failRoll = func() float64 { return 0.9 }
	rec = do(t, s, http.MethodGet, "/api/subjects", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPurgeRefreshTokens(t *testing.T) {
	s := newTestServer(t)
	kept := login(t, s, SeedTeacherUsername, SeedTeacherPassword)
	revoked := login(t, s, SeedTeacherUsername, SeedTeacherPassword)

	rec := do(t, s, http.MethodPost, "/api/auth/logout", "", RefreshRequest{RefreshToken: revoked.RefreshToken})
	require.Equal(t, http.StatusNoContent, rec.Code)

	deleted, err := s.purgeRefreshTokens(time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	rec = do(t, s, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: kept.RefreshToken})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Everything is expired two hours on
	deleted, err = s.purgeRefreshTokens(time.Now().Add(2 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
}
