package client

import (
	"context"
	"net/url"

	"github.com/ts-platform/portal/internal/models"
)

// CreateStudentRequest represents a teacher creating a student account
type CreateStudentRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Username  string `json:"username" validate:"required,min=3"`
	Password  string `json:"password" validate:"required,strongpassword"`
}

func studentPath(studentID string) string {
	return "/teacher/students/" + url.PathEscape(studentID)
}

// ListStudents returns all students, or the members of groupID when it is set
func (c *Client) ListStudents(ctx context.Context, groupID string) ([]models.User, error) {
	var query url.Values
	if groupID != "" {
		query = url.Values{"groupId": []string{groupID}}
	}

	var students []models.User
	if err := c.Get(ctx, "/teacher/students", query, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// CreateStudent creates a student account that must change its password on first login
func (c *Client) CreateStudent(ctx context.Context, req CreateStudentRequest) (*models.User, error) {
	var student models.User
	if err := c.Post(ctx, "/teacher/students", req, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// ResetStudentPassword sets a temporary password for a student
func (c *Client) ResetStudentPassword(ctx context.Context, studentID, tempPassword string) (*models.User, error) {
	var student models.User
	if err := c.Post(ctx, studentPath(studentID)+"/reset-password", map[string]string{"password": tempPassword}, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// GetStudent returns one student
func (c *Client) GetStudent(ctx context.Context, studentID string) (*models.User, error) {
	var student models.User
	if err := c.Get(ctx, studentPath(studentID), nil, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListStudentAttendance returns a student's attendance marks
func (c *Client) ListStudentAttendance(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := c.Get(ctx, studentPath(studentID)+"/attendance", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ListStudentSubmissions returns a student's submissions
func (c *Client) ListStudentSubmissions(ctx context.Context, studentID string) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := c.Get(ctx, studentPath(studentID)+"/submissions", nil, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}

// ListStudentGroups returns the groups a student belongs to
func (c *Client) ListStudentGroups(ctx context.Context, studentID string) ([]models.GroupRef, error) {
	var groups []models.GroupRef
	if err := c.Get(ctx, studentPath(studentID)+"/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// ListStudentGrades returns a student's grades
func (c *Client) ListStudentGrades(ctx context.Context, studentID string) ([]models.Grade, error) {
	var grades []models.Grade
	if err := c.Get(ctx, studentPath(studentID)+"/grades", nil, &grades); err != nil {
		return nil, err
	}
	return grades, nil
}
