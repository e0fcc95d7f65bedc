package client

import (
	"context"
	"net/url"
	"time"

	"github.com/ts-platform/portal/internal/models"
)

// AssignmentInput is the body of the assignment create call
type AssignmentInput struct {
	SubjectID   string                  `json:"subjectId"`
	TeacherID   string                  `json:"teacherId,omitempty"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Deadline    time.Time               `json:"deadline"`
	MaxScore    int                     `json:"maxScore"`
	Attachments []models.FileAttachment `json:"attachments,omitempty"`
	TargetType  models.TargetType       `json:"targetType,omitempty"`
	TargetID    *string                 `json:"targetId,omitempty"`
	IsLab       bool                    `json:"isLab,omitempty"`
	LabEditor   models.LabEditor        `json:"labEditor,omitempty"`
}

// GradeInput is the body of the grade call. The server derives the grade scale.
type GradeInput struct {
	AssignmentID string `json:"assignmentId"`
	StudentID    string `json:"studentId"`
	Score        int    `json:"score"`
	TeacherID    string `json:"teacherId,omitempty"`
}

func assignmentPath(assignmentID string) string {
	return "/assignments/" + url.PathEscape(assignmentID)
}

// ListAssignments returns the current teacher's assignments
func (c *Client) ListAssignments(ctx context.Context) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := c.Get(ctx, "/assignments", nil, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// CreateAssignment creates an assignment
func (c *Client) CreateAssignment(ctx context.Context, input AssignmentInput) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := c.Post(ctx, "/assignments", input, &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// GetAssignment returns one assignment
func (c *Client) GetAssignment(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := c.Get(ctx, assignmentPath(assignmentID), nil, &assignment); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListAssignmentSubmissions returns every submission of an assignment
func (c *Client) ListAssignmentSubmissions(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := c.Get(ctx, assignmentPath(assignmentID)+"/submissions", nil, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}

// ListAssignmentGrades returns every grade given for an assignment
func (c *Client) ListAssignmentGrades(ctx context.Context, assignmentID string) ([]models.Grade, error) {
	var grades []models.Grade
	if err := c.Get(ctx, assignmentPath(assignmentID)+"/grades", nil, &grades); err != nil {
		return nil, err
	}
	return grades, nil
}

// GradeSubmission records or replaces a student's score for an assignment
func (c *Client) GradeSubmission(ctx context.Context, input GradeInput) (*models.Grade, error) {
	var grade models.Grade
	if err := c.Post(ctx, assignmentPath(input.AssignmentID)+"/grade", input, &grade); err != nil {
		return nil, err
	}
	return &grade, nil
}
