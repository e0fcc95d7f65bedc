package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ts-platform/portal/internal/models"
)

// SubmitRequest is a student's answer. ContentHTML and SheetJSON are stored as given.
type SubmitRequest struct {
	Text        string                  `json:"text"`
	Files       []models.FileAttachment `json:"files"`
	ContentHTML *string                 `json:"contentHtml"`
	SheetJSON   json.RawMessage         `json:"sheetJson"`
}

func (r SubmitRequest) empty() bool {
	sheet := strings.TrimSpace(string(r.SheetJSON))
	return strings.TrimSpace(r.Text) == "" &&
		len(r.Files) == 0 &&
		(r.ContentHTML == nil || strings.TrimSpace(*r.ContentHTML) == "") &&
		(sheet == "" || sheet == "null")
}

// visibleAssignments scopes assignments to those given to everyone, to the
// student directly, or to one of the student's groups
func (s *Server) visibleAssignments(studentID string) *gorm.DB {
	groupIDs := s.db.Model(&models.GroupMember{}).Select("group_id").Where("student_id = ?", studentID)
	return s.db.Model(&models.Assignment{}).Where(
		s.db.Where("target_type = '' OR target_type IS NULL").
			Or("target_type = ? AND target_id = ?", models.TargetStudent, studentID).
			Or("target_type = ? AND target_id IN (?)", models.TargetGroup, groupIDs),
	)
}

func (s *Server) listMyAssignments(c *gin.Context) {
	assignments := []models.Assignment{}
	if err := s.visibleAssignments(mustSession(c).UserID).Order("deadline").Find(&assignments).Error; err != nil {
		s.internalError(c, err, "Failed to list assignments")
		return
	}
	if err := s.withTeacherNames(assignments); err != nil {
		s.internalError(c, err, "Failed to list assignments")
		return
	}
	c.JSON(http.StatusOK, assignments)
}

// submitAssignment creates or replaces the caller's submission
func (s *Server) submitAssignment(c *gin.Context) {
	var req SubmitRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "submission is empty"})
		return
	}

	if sheet := strings.TrimSpace(string(req.SheetJSON)); sheet == "" || sheet == "null" {
		req.SheetJSON = nil
	}

	studentID := mustSession(c).UserID

	var assignment models.Assignment
	if err := s.visibleAssignments(studentID).Where("id = ?", c.Param("id")).First(&assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Assignment not found"})
			return
		}
		s.internalError(c, err, "Failed to load assignment")
		return
	}

	now := time.Now().UTC()
	var submission models.Submission
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("assignment_id = ? AND student_id = ?", assignment.ID, studentID).First(&submission).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		submission.AssignmentID = assignment.ID
		submission.StudentID = studentID
		submission.SubmittedAt = now
		submission.Text = req.Text
		submission.Files = req.Files
		submission.ContentHTML = req.ContentHTML
		submission.SheetJSON = req.SheetJSON
		submission.IsLate = now.After(assignment.Deadline)
		return tx.Save(&submission).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to save submission")
		return
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("student_id", studentID).
		Bool("late", submission.IsLate).
		Msg("Assignment submitted")
	c.JSON(http.StatusOK, submission)
}

func (s *Server) listMySubmissions(c *gin.Context) {
	s.respondSubmissions(c, mustSession(c).UserID)
}

func (s *Server) listMyGrades(c *gin.Context) {
	s.respondGrades(c, "student_id = ?", mustSession(c).UserID)
}

func (s *Server) listMyAttendance(c *gin.Context) {
	s.respondAttendance(c, mustSession(c).UserID)
}
