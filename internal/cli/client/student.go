package client

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/ts-platform/portal/internal/models"
)

// SubmitRequest is a student's answer. ContentHTML and SheetJSON come from the lab editors.
type SubmitRequest struct {
	Text        string                  `json:"text,omitempty"`
	Files       []models.FileAttachment `json:"files,omitempty"`
	ContentHTML *string                 `json:"contentHtml,omitempty"`
	SheetJSON   json.RawMessage         `json:"sheetJson,omitempty"`
}

// MyAssignments returns the assignments given to the current student
func (c *Client) MyAssignments(ctx context.Context) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := c.Get(ctx, "/student/assignments", nil, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// MySubmissions returns the current student's submissions
func (c *Client) MySubmissions(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := c.Get(ctx, "/student/submissions", nil, &submissions); err != nil {
		return nil, err
	}
	return submissions, nil
}

// SubmitAssignment submits or resubmits an answer
func (c *Client) SubmitAssignment(ctx context.Context, assignmentID string, req SubmitRequest) (*models.Submission, error) {
	var submission models.Submission
	path := "/student/assignments/" + url.PathEscape(assignmentID) + "/submit"
	if err := c.Post(ctx, path, req, &submission); err != nil {
		return nil, err
	}
	return &submission, nil
}

// MyGrades returns the current student's grades
func (c *Client) MyGrades(ctx context.Context) ([]models.Grade, error) {
	var grades []models.Grade
	if err := c.Get(ctx, "/student/grades", nil, &grades); err != nil {
		return nil, err
	}
	return grades, nil
}

// MyAttendance returns the current student's attendance marks
func (c *Client) MyAttendance(ctx context.Context) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	if err := c.Get(ctx, "/student/attendance", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}
