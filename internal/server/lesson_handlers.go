package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ts-platform/portal/internal/models"
)

// LessonRequest schedules a lesson
type LessonRequest struct {
	SubjectID string    `json:"subjectId" binding:"required"`
	TeacherID string    `json:"teacherId"`
	DateTime  time.Time `json:"dateTime"`
	Topic     string    `json:"topic"`
}

func (s *Server) listLessons(c *gin.Context) {
	lessons := []models.Lesson{}
	if err := s.db.Where("teacher_id = ?", mustSession(c).UserID).Order("date_time").Find(&lessons).Error; err != nil {
		s.internalError(c, err, "Failed to list lessons")
		return
	}
	c.JSON(http.StatusOK, lessons)
}

func (s *Server) createLesson(c *gin.Context) {
	var req LessonRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.DateTime.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dateTime is required"})
		return
	}

	var subject models.Subject
	if !s.findOr404(c, &subject, "Subject", "id = ?", req.SubjectID) {
		return
	}

	lesson := models.Lesson{
		SubjectID: subject.ID,
		TeacherID: req.TeacherID,
		DateTime:  req.DateTime.UTC(),
		Topic:     strings.TrimSpace(req.Topic),
	}
	if lesson.TeacherID == "" {
		lesson.TeacherID = mustSession(c).UserID
	}

	if err := s.db.Create(&lesson).Error; err != nil {
		s.internalError(c, err, "Failed to create lesson")
		return
	}
	c.JSON(http.StatusCreated, lesson)
}

func (s *Server) listLessonAttendance(c *gin.Context) {
	var lesson models.Lesson
	if !s.findOr404(c, &lesson, "Lesson", "id = ?", c.Param("id")) {
		return
	}
	s.respondLessonAttendance(c, lesson.ID)
}

// setAttendance upserts one mark per student and returns the lesson's attendance
func (s *Server) setAttendance(c *gin.Context) {
	var entries []models.AttendanceEntry
	if !bindJSON(c, &entries) {
		return
	}

	var lesson models.Lesson
	if !s.findOr404(c, &lesson, "Lesson", "id = ?", c.Param("id")) {
		return
	}

	for _, entry := range entries {
		if !entry.Status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid attendance status %q", entry.Status)})
			return
		}
	}

	now := time.Now().UTC()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			var count int64
			if err := tx.Model(&models.User{}).
				Where("id = ? AND role = ?", entry.StudentID, models.RoleStudent).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("%w: %s", errUnknownStudent, entry.StudentID)
			}

			record := models.AttendanceRecord{
				LessonID:   lesson.ID,
				StudentID:  entry.StudentID,
				Status:     entry.Status,
				RecordedAt: now,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "lesson_id"}, {Name: "student_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"status", "recorded_at"}),
			}).Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUnknownStudent(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.internalError(c, err, "Failed to save attendance")
		return
	}

	s.logger.Info().Str("lesson_id", lesson.ID).Int("entries", len(entries)).Msg("Attendance recorded")
	s.respondLessonAttendance(c, lesson.ID)
}

func (s *Server) respondLessonAttendance(c *gin.Context, lessonID string) {
	records := []models.AttendanceRecord{}
	if err := s.db.Where("lesson_id = ?", lessonID).Order("student_id").Find(&records).Error; err != nil {
		s.internalError(c, err, "Failed to list attendance")
		return
	}
	c.JSON(http.StatusOK, records)
}
