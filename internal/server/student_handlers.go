package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ts-platform/portal/internal/auth"
	"github.com/ts-platform/portal/internal/models"
)

// CreateStudentRequest registers a student account
type CreateStudentRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Username  string `json:"username" binding:"required,min=3"`
	Password  string `json:"password" binding:"required,strongpassword"`
}

// ResetPasswordRequest sets a temporary password for a student
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,strongpassword"`
}

func (s *Server) findStudent(c *gin.Context, student *models.User) bool {
	return s.findOr404(c, student, "Student", "id = ? AND role = ?", c.Param("id"), models.RoleStudent)
}

func (s *Server) listStudents(c *gin.Context) {
	query := s.db.Where("users.role = ?", models.RoleStudent)
	if groupID := c.Query("groupId"); groupID != "" {
		query = query.
			Joins("JOIN group_members ON group_members.student_id = users.id").
			Where("group_members.group_id = ?", groupID)
	}

	var students []models.User
	if err := query.Order("users.last_name, users.first_name").Find(&students).Error; err != nil {
		s.internalError(c, err, "Failed to list students")
		return
	}
	c.JSON(http.StatusOK, students)
}

func (s *Server) createStudent(c *gin.Context) {
	var req CreateStudentRequest
	if !bindJSON(c, &req) {
		return
	}

	username := strings.TrimSpace(req.Username)
	var taken int64
	if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&taken).Error; err != nil {
		s.internalError(c, err, "Failed to check username")
		return
	}
	if taken > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Username is already taken"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(c, err, "Failed to create student")
		return
	}

	student := models.User{
		Username:           username,
		PasswordHash:       passwordHash,
		Role:               models.RoleStudent,
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		MustChangePassword: true,
	}
	if err := s.db.Create(&student).Error; err != nil {
		s.internalError(c, err, "Failed to create student")
		return
	}

	s.logger.Info().
		Str("student_id", student.ID).
		Str("username", student.Username).
		Str("created_by", mustSession(c).UserID).
		Msg("Student created")
	c.JSON(http.StatusCreated, student)
}

func (s *Server) getStudent(c *gin.Context) {
	var student models.User
	if !s.findStudent(c, &student) {
		return
	}
	c.JSON(http.StatusOK, student)
}

// resetStudentPassword sets a temporary password and ends the student's sessions
func (s *Server) resetStudentPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	var student models.User
	if !s.findStudent(c, &student) {
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(c, err, "Failed to reset password")
		return
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&student).Updates(map[string]any{
			"password_hash":        passwordHash,
			"must_change_password": true,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked_at IS NULL", student.ID).
			Update("revoked_at", time.Now().UTC()).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to reset password")
		return
	}

	s.logger.Info().Str("student_id", student.ID).Msg("Student password reset")
	c.JSON(http.StatusOK, student)
}

func (s *Server) listStudentAttendance(c *gin.Context) {
	var student models.User
	if !s.findStudent(c, &student) {
		return
	}
	s.respondAttendance(c, student.ID)
}

func (s *Server) listStudentSubmissions(c *gin.Context) {
	var student models.User
	if !s.findStudent(c, &student) {
		return
	}
	s.respondSubmissions(c, student.ID)
}

func (s *Server) listStudentGroups(c *gin.Context) {
	var student models.User
	if !s.findStudent(c, &student) {
		return
	}

	refs := []models.GroupRef{}
	if err := s.db.Model(&models.Group{}).
		Select("student_groups.id, student_groups.name").
		Joins("JOIN group_members ON group_members.group_id = student_groups.id").
		Where("group_members.student_id = ?", student.ID).
		Order("student_groups.name").
		Scan(&refs).Error; err != nil {
		s.internalError(c, err, "Failed to list student groups")
		return
	}
	c.JSON(http.StatusOK, refs)
}

func (s *Server) listStudentGrades(c *gin.Context) {
	var student models.User
	if !s.findStudent(c, &student) {
		return
	}
	s.respondGrades(c, "student_id = ?", student.ID)
}

// respondAttendance writes the attendance of a student, newest first
func (s *Server) respondAttendance(c *gin.Context, studentID string) {
	records := []models.AttendanceRecord{}
	if err := s.db.Where("student_id = ?", studentID).Order("recorded_at DESC").Find(&records).Error; err != nil {
		s.internalError(c, err, "Failed to list attendance")
		return
	}
	c.JSON(http.StatusOK, records)
}

// respondSubmissions writes the submissions of a student, newest first
func (s *Server) respondSubmissions(c *gin.Context, studentID string) {
	submissions := []models.Submission{}
	if err := s.db.Where("student_id = ?", studentID).Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		s.internalError(c, err, "Failed to list submissions")
		return
	}
	c.JSON(http.StatusOK, submissions)
}

func (s *Server) respondGrades(c *gin.Context, query string, args ...any) {
	grades := []models.Grade{}
	if err := s.db.Where(query, args...).Order("graded_at DESC").Find(&grades).Error; err != nil {
		s.internalError(c, err, "Failed to list grades")
		return
	}
	c.JSON(http.StatusOK, grades)
}
