package client

import (
	"context"
	"net/url"

	"github.com/ts-platform/portal/internal/models"
)

// GroupInput is the body of group create and update calls
type GroupInput struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func groupPath(groupID string) string {
	return "/teacher/groups/" + url.PathEscape(groupID)
}

// ListGroups returns the current teacher's groups
func (c *Client) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := c.Get(ctx, "/teacher/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateGroup creates a group
func (c *Client) CreateGroup(ctx context.Context, input GroupInput) (*models.Group, error) {
	var group models.Group
	if err := c.Post(ctx, "/teacher/groups", input, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// UpdateGroup renames a group
func (c *Client) UpdateGroup(ctx context.Context, groupID string, input GroupInput) (*models.Group, error) {
	var group models.Group
	if err := c.Put(ctx, groupPath(groupID), input, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// DeleteGroup deletes a group and its memberships
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.Delete(ctx, groupPath(groupID))
}

// ListGroupMembers returns the students of a group
func (c *Client) ListGroupMembers(ctx context.Context, groupID string) ([]models.User, error) {
	var members []models.User
	if err := c.Get(ctx, groupPath(groupID)+"/members", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// AddGroupMember adds a student to a group
func (c *Client) AddGroupMember(ctx context.Context, groupID, studentID string) error {
	return c.Post(ctx, groupPath(groupID)+"/members", map[string]string{"studentId": studentID}, nil)
}

// RemoveGroupMember removes a student from a group
func (c *Client) RemoveGroupMember(ctx context.Context, groupID, studentID string) error {
	return c.Delete(ctx, groupPath(groupID)+"/members/"+url.PathEscape(studentID))
}
