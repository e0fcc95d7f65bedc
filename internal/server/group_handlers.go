package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ts-platform/portal/internal/models"
)

// GroupRequest creates or updates a group
type GroupRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

// AddMemberRequest adds a student to a group
type AddMemberRequest struct {
	StudentID string `json:"studentId" binding:"required"`
}

// ownGroup loads a group of the calling teacher
func (s *Server) ownGroup(c *gin.Context, group *models.Group) bool {
	return s.findOr404(c, group, "Group", "id = ? AND teacher_id = ?", c.Param("id"), mustSession(c).UserID)
}

func (s *Server) listGroups(c *gin.Context) {
	var groups []models.Group
	if err := s.db.Where("teacher_id = ?", mustSession(c).UserID).Order("name").Find(&groups).Error; err != nil {
		s.internalError(c, err, "Failed to list groups")
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (s *Server) createGroup(c *gin.Context) {
	var req GroupRequest
	if !bindJSON(c, &req) {
		return
	}

	group := models.Group{
		Name:      strings.TrimSpace(req.Name),
		Code:      strings.TrimSpace(req.Code),
		TeacherID: mustSession(c).UserID,
	}
	if err := s.db.Create(&group).Error; err != nil {
		s.internalError(c, err, "Failed to create group")
		return
	}

	s.logger.Info().Str("group_id", group.ID).Str("code", group.Code).Msg("Group created")
	c.JSON(http.StatusCreated, group)
}

func (s *Server) updateGroup(c *gin.Context) {
	var req GroupRequest
	if !bindJSON(c, &req) {
		return
	}

	var group models.Group
	if !s.ownGroup(c, &group) {
		return
	}

	group.Name = strings.TrimSpace(req.Name)
	group.Code = strings.TrimSpace(req.Code)
	if err := s.db.Save(&group).Error; err != nil {
		s.internalError(c, err, "Failed to update group")
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) deleteGroup(c *gin.Context) {
	var group models.Group
	if !s.ownGroup(c, &group) {
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", group.ID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&group).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to delete group")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listGroupMembers(c *gin.Context) {
	var group models.Group
	if !s.ownGroup(c, &group) {
		return
	}

	var students []models.User
	if err := s.db.
		Joins("JOIN group_members ON group_members.student_id = users.id").
		Where("group_members.group_id = ?", group.ID).
		Order("users.last_name, users.first_name").
		Find(&students).Error; err != nil {
		s.internalError(c, err, "Failed to list group members")
		return
	}
	c.JSON(http.StatusOK, students)
}

func (s *Server) addGroupMember(c *gin.Context) {
	var req AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	var group models.Group
	if !s.ownGroup(c, &group) {
		return
	}

	var student models.User
	if !s.findOr404(c, &student, "Student", "id = ? AND role = ?", req.StudentID, models.RoleStudent) {
		return
	}

	member := models.GroupMember{GroupID: group.ID, StudentID: student.ID}
	// Adding an existing member is a no-op
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
		s.internalError(c, err, "Failed to add group member")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeGroupMember(c *gin.Context) {
	var group models.Group
	if !s.ownGroup(c, &group) {
		return
	}

	result := s.db.Where("group_id = ? AND student_id = ?", group.ID, c.Param("studentId")).Delete(&models.GroupMember{})
	if result.Error != nil {
		s.internalError(c, result.Error, "Failed to remove group member")
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student is not a member of this group"})
		return
	}
	c.Status(http.StatusNoContent)
}
