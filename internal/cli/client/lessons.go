package client

import (
	"context"
	"net/url"
	"time"

	"github.com/ts-platform/portal/internal/models"
)

// LessonInput is the body of the lesson create call
type LessonInput struct {
	SubjectID string    `json:"subjectId"`
	TeacherID string    `json:"teacherId,omitempty"`
	DateTime  time.Time `json:"dateTime"`
	Topic     string    `json:"topic"`
}

func attendancePath(lessonID string) string {
	return "/lessons/" + url.PathEscape(lessonID) + "/attendance"
}

// ListLessons returns the current teacher's lessons
func (c *Client) ListLessons(ctx context.Context) ([]models.Lesson, error) {
	var lessons []models.Lesson
	if err := c.Get(ctx, "/lessons", nil, &lessons); err != nil {
		return nil, err
	}
	return lessons, nil
}

// CreateLesson schedules a lesson
func (c *Client) CreateLesson(ctx context.Context, input LessonInput) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := c.Post(ctx, "/lessons", input, &lesson); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListLessonAttendance returns the attendance marks of a lesson
func (c *Client) ListLessonAttendance(ctx context.Context, lessonID string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := c.Get(ctx, attendancePath(lessonID), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SetAttendance records attendance marks for a lesson, replacing earlier marks of the same students
func (c *Client) SetAttendance(ctx context.Context, lessonID string, entries []models.AttendanceEntry) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := c.Post(ctx, attendancePath(lessonID), entries, &records); err != nil {
		return nil, err
	}
	return records, nil
}
