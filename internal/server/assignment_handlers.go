package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"

	"github.com/ts-platform/portal/internal/models"
)

// AssignmentRequest creates an assignment
type AssignmentRequest struct {
	SubjectID   string                  `json:"subjectId" binding:"required"`
	TeacherID   string                  `json:"teacherId"`
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	Deadline    time.Time               `json:"deadline"`
	MaxScore    int                     `json:"maxScore" binding:"required,min=1"`
	Attachments []models.FileAttachment `json:"attachments"`
	TargetType  models.TargetType       `json:"targetType" binding:"omitempty,oneof=GROUP STUDENT"`
	TargetID    *string                 `json:"targetId"`
	IsLab       bool                    `json:"isLab"`
	LabEditor   models.LabEditor        `json:"labEditor" binding:"omitempty,oneof=word excel"`
}

// GradeRequest grades a student's work on an assignment
type GradeRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Score     *int   `json:"score" binding:"required"`
	TeacherID string `json:"teacherId"`
}

// withTeacherNames fills TeacherName on each assignment
func (s *Server) withTeacherNames(assignments []models.Assignment) error {
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.TeacherID)
	}

	var teachers []models.User
	if err := s.db.Where("id IN ?", ids).Find(&teachers).Error; err != nil {
		return err
	}
	names := make(map[string]string, len(teachers))
	for _, t := range teachers {
		names[t.ID] = t.FullName()
	}

	for i := range assignments {
		if name, ok := names[assignments[i].TeacherID]; ok {
			assignments[i].TeacherName = &name
		}
	}
	return nil
}

func (s *Server) listAssignments(c *gin.Context) {
	assignments := []models.Assignment{}
	if err := s.db.Where("teacher_id = ?", mustSession(c).UserID).Order("deadline").Find(&assignments).Error; err != nil {
		s.internalError(c, err, "Failed to list assignments")
		return
	}
	if err := s.withTeacherNames(assignments); err != nil {
		s.internalError(c, err, "Failed to list assignments")
		return
	}
	c.JSON(http.StatusOK, assignments)
}

func (s *Server) getAssignment(c *gin.Context) {
	var assignment models.Assignment
	if !s.findOr404(c, &assignment, "Assignment", "id = ?", c.Param("id")) {
		return
	}
	one := []models.Assignment{assignment}
	if err := s.withTeacherNames(one); err != nil {
		s.internalError(c, err, "Failed to load assignment")
		return
	}
	c.JSON(http.StatusOK, one[0])
}

// checkTarget verifies the group or student an assignment is given to
func (s *Server) checkTarget(targetType models.TargetType, targetID *string) error {
	if targetType == "" {
		if targetID != nil {
			return fmt.Errorf("targetType is required when targetId is set")
		}
		return nil
	}
	if targetID == nil || *targetID == "" {
		return fmt.Errorf("targetId is required when targetType is set")
	}

	var count int64
	var err error
	switch targetType {
	case models.TargetGroup:
		err = s.db.Model(&models.Group{}).Where("id = ?", *targetID).Count(&count).Error
	case models.TargetStudent:
		err = s.db.Model(&models.User{}).Where("id = ? AND role = ?", *targetID, models.RoleStudent).Count(&count).Error
	}
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%s target %s not found", strings.ToLower(string(targetType)), *targetID)
	}
	return nil
}

func (s *Server) createAssignment(c *gin.Context) {
	var req AssignmentRequest
	if !bindJSON(c, &req) {
		return
	}

	var subject models.Subject
	if !s.findOr404(c, &subject, "Subject", "id = ?", req.SubjectID) {
		return
	}

	if req.Deadline.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deadline is required"})
		return
	}
	if err := s.checkTarget(req.TargetType, req.TargetID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.IsLab && req.LabEditor == "" {
		req.LabEditor = models.LabEditorWord
	}
	if !req.IsLab {
		req.LabEditor = ""
	}

	assignment := models.Assignment{
		SubjectID:   subject.ID,
		TeacherID:   req.TeacherID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Deadline:    req.Deadline.UTC(),
		MaxScore:    req.MaxScore,
		Attachments: req.Attachments,
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		IsLab:       req.IsLab,
		LabEditor:   req.LabEditor,
	}
	if assignment.TeacherID == "" {
		assignment.TeacherID = mustSession(c).UserID
	}

	if err := s.db.Create(&assignment).Error; err != nil {
		s.internalError(c, err, "Failed to create assignment")
		return
	}

	s.logger.Info().Str("assignment_id", assignment.ID).Str("title", assignment.Title).Msg("Assignment created")
	c.JSON(http.StatusCreated, assignment)
}

func (s *Server) listAssignmentSubmissions(c *gin.Context) {
	var assignment models.Assignment
	if !s.findOr404(c, &assignment, "Assignment", "id = ?", c.Param("id")) {
		return
	}

	submissions := []models.Submission{}
	if err := s.db.Where("assignment_id = ?", assignment.ID).Order("submitted_at").Find(&submissions).Error; err != nil {
		s.internalError(c, err, "Failed to list submissions")
		return
	}
	c.JSON(http.StatusOK, submissions)
}

func (s *Server) listAssignmentGrades(c *gin.Context) {
	var assignment models.Assignment
	if !s.findOr404(c, &assignment, "Assignment", "id = ?", c.Param("id")) {
		return
	}
	s.respondGrades(c, "assignment_id = ?", assignment.ID)
}

// gradeSubmission upserts the grade of a student for an assignment
func (s *Server) gradeSubmission(c *gin.Context) {
	var req GradeRequest
	if !bindJSON(c, &req) {
		return
	}

	var assignment models.Assignment
	if !s.findOr404(c, &assignment, "Assignment", "id = ?", c.Param("id")) {
		return
	}

	score := *req.Score
	if score < 0 || score > assignment.MaxScore {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("score must be between 0 and %d", assignment.MaxScore)})
		return
	}

	var student models.User
	if !s.findOr404(c, &student, "Student", "id = ? AND role = ?", req.StudentID, models.RoleStudent) {
		return
	}

	grade := models.Grade{
		AssignmentID: assignment.ID,
		StudentID:    student.ID,
		Score:        score,
		Grade:        models.ScaleFor(score, assignment.MaxScore),
		GradedAt:     time.Now().UTC(),
		TeacherID:    req.TeacherID,
	}
	if grade.TeacherID == "" {
		grade.TeacherID = mustSession(c).UserID
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "grade", "graded_at", "teacher_id"}),
	}).Create(&grade).Error; err != nil {
		s.internalError(c, err, "Failed to save grade")
		return
	}

	// An upsert keeps the existing row's id, not the one BeforeCreate generated
	var stored models.Grade
	if err := s.db.Where("assignment_id = ? AND student_id = ?", assignment.ID, student.ID).First(&stored).Error; err != nil {
		s.internalError(c, err, "Failed to load grade")
		return
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("student_id", student.ID).
		Int("score", stored.Score).
		Str("grade", string(stored.Grade)).
		Msg("Submission graded")
	c.JSON(http.StatusOK, stored)
}
