package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ts-platform/portal/internal/models"
)

// SubjectRequest creates or updates a subject; empty fields are kept on update
type SubjectRequest struct {
	Name      string `json:"name"`
	Code      string `json:"code"`
	TeacherID string `json:"teacherId"`
}

func (s *Server) listSubjects(c *gin.Context) {
	var subjects []models.Subject
	if err := s.db.Order("name").Find(&subjects).Error; err != nil {
		s.internalError(c, err, "Failed to list subjects")
		return
	}
	c.JSON(http.StatusOK, subjects)
}

func (s *Server) createSubject(c *gin.Context) {
	var req SubjectRequest
	if !bindJSON(c, &req) {
		return
	}

	subject := models.Subject{
		Name:      strings.TrimSpace(req.Name),
		Code:      strings.TrimSpace(req.Code),
		TeacherID: req.TeacherID,
	}
	if subject.Name == "" || subject.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and code are required"})
		return
	}
	if subject.TeacherID == "" {
		subject.TeacherID = mustSession(c).UserID
	}

	if err := s.db.Create(&subject).Error; err != nil {
		s.internalError(c, err, "Failed to create subject")
		return
	}

	s.logger.Info().Str("subject_id", subject.ID).Str("code", subject.Code).Msg("Subject created")
	c.JSON(http.StatusCreated, subject)
}

func (s *Server) updateSubject(c *gin.Context) {
	var req SubjectRequest
	if !bindJSON(c, &req) {
		return
	}

	var subject models.Subject
	if !s.findOr404(c, &subject, "Subject", "id = ?", c.Param("id")) {
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		subject.Name = name
	}
	if code := strings.TrimSpace(req.Code); code != "" {
		subject.Code = code
	}
	if req.TeacherID != "" {
		subject.TeacherID = req.TeacherID
	}

	if err := s.db.Save(&subject).Error; err != nil {
		s.internalError(c, err, "Failed to update subject")
		return
	}
	c.JSON(http.StatusOK, subject)
}

func (s *Server) deleteSubject(c *gin.Context) {
	result := s.db.Where("id = ?", c.Param("id")).Delete(&models.Subject{})
	if result.Error != nil {
		s.internalError(c, result.Error, "Failed to delete subject")
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
