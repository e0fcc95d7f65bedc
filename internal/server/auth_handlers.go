package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ts-platform/portal/internal/auth"
	"github.com/ts-platform/portal/internal/models"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	User               models.User `json:"user"`
	MustChangePassword bool        `json:"mustChangePassword"`
	AccessToken        string      `json:"accessToken"`
	RefreshToken       string      `json:"refreshToken"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshResponse is a rotated token pair
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,strongpassword"`
}

// ProfileUpdateRequest is a partial profile update; nil fields are kept
type ProfileUpdateRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Username  *string `json:"username" binding:"omitempty,min=3"`
}

var errRefreshRejected = errors.New("refresh token rejected")

// issueTokens creates an access token and a stored refresh token for user
func (s *Server) issueTokens(tx *gorm.DB, user *models.User) (string, string, error) {
	accessToken, err := s.issuer.GenerateToken(user)
	if err != nil {
		return "", "", err
	}

	refreshToken, hash, err := auth.NewRefreshToken()
	if err != nil {
		return "", "", err
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().UTC().Add(s.config.Auth.RefreshTokenTTL),
	}
	if err := tx.Create(record).Error; err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	var user models.User
	if err := s.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	accessToken, refreshToken, err := s.issueTokens(s.db, &user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate tokens")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User logged in")

	c.JSON(http.StatusOK, LoginResponse{
		User:               user,
		MustChangePassword: user.MustChangePassword,
		AccessToken:        accessToken,
		RefreshToken:       refreshToken,
	})
}

// refresh exchanges a refresh token for a new pair and revokes the old one
func (s *Server) refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	var resp RefreshResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		var record models.RefreshToken
		if err := tx.Where("token_hash = ?", auth.HashRefreshToken(req.RefreshToken)).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errRefreshRejected
			}
			return err
		}
		if record.RevokedAt != nil || !now.Before(record.ExpiresAt) {
			return errRefreshRejected
		}

		var user models.User
		if err := tx.Where("id = ?", record.UserID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errRefreshRejected
			}
			return err
		}

		// Guard on revoked_at so two racing refreshes cannot both rotate
		result := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", record.ID).
			Update("revoked_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errRefreshRejected
		}

		accessToken, refreshToken, err := s.issueTokens(tx, &user)
		if err != nil {
			return err
		}
		resp = RefreshResponse{AccessToken: accessToken, RefreshToken: refreshToken}
		return nil
	})

	if err != nil {
		if errors.Is(err, errRefreshRejected) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to refresh tokens")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// logout revokes the given refresh token. Unknown tokens are ignored.
func (s *Server) logout(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", auth.HashRefreshToken(req.RefreshToken)).
		Update("revoked_at", time.Now().UTC()).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to revoke refresh token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) changePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	sessionData := mustSession(c)

	var user models.User
	if err := s.db.Where("id = ?", sessionData.UserID).First(&user).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := auth.VerifyPassword(req.OldPassword, user.PasswordHash); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
		return
	}
	if req.OldPassword == req.NewPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must differ from the current one"})
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change password"})
		return
	}

	if err := s.db.Model(&user).Updates(map[string]any{
		"password_hash":        passwordHash,
		"must_change_password": false,
	}).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change password"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Password changed")
	c.Status(http.StatusNoContent)
}

// getCurrentUser returns the caller; students also get their groups
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData := mustSession(c)

	var user models.User
	if err := s.db.Where("id = ?", sessionData.UserID).First(&user).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	profile := models.StudentProfile{User: user}
	if user.Role == models.RoleStudent {
		if err := s.db.
			Joins("JOIN group_members ON group_members.group_id = student_groups.id").
			Where("group_members.student_id = ?", user.ID).
			Order("student_groups.name").
			Find(&profile.Groups).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to load student groups")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	c.JSON(http.StatusOK, profile)
}

func (s *Server) updateProfile(c *gin.Context) {
	var req ProfileUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	sessionData := mustSession(c)

	updates := map[string]any{}
	if req.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		var taken int64
		if err := s.db.Model(&models.User{}).
			Where("username = ? AND id <> ?", username, sessionData.UserID).
			Count(&taken).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to check username")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if taken > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Username is already taken"})
			return
		}
		updates["username"] = username
	}

	var user models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", sessionData.UserID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", sessionData.UserID).First(&user).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}
