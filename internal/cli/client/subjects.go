package client

import (
	"context"
	"net/url"

	"github.com/ts-platform/portal/internal/models"
)

// SubjectInput is the body of subject create and update calls
type SubjectInput struct {
	Name      string `json:"name,omitempty"`
	Code      string `json:"code,omitempty"`
	TeacherID string `json:"teacherId,omitempty"`
}

// ListSubjects returns the subjects visible to the current user
func (c *Client) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if err := c.Get(ctx, "/subjects", nil, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

// CreateSubject creates a subject
func (c *Client) CreateSubject(ctx context.Context, input SubjectInput) (*models.Subject, error) {
	var subject models.Subject
	if err := c.Post(ctx, "/subjects", input, &subject); err != nil {
		return nil, err
	}
	return &subject, nil
}

// UpdateSubject changes the non-empty fields of a subject
func (c *Client) UpdateSubject(ctx context.Context, subjectID string, input SubjectInput) (*models.Subject, error) {
	var subject models.Subject
	if err := c.Put(ctx, "/subjects/"+url.PathEscape(subjectID), input, &subject); err != nil {
		return nil, err
	}
	return &subject, nil
}

// DeleteSubject deletes a subject by ID
func (c *Client) DeleteSubject(ctx context.Context, subjectID string) error {
	return c.Delete(ctx, "/subjects/"+url.PathEscape(subjectID))
}
