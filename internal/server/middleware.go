package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ts-platform/portal/internal/auth"
	"github.com/ts-platform/portal/internal/models"
	"github.com/ts-platform/portal/internal/validation"
)

const (
	bearerPrefix = "Bearer "

	// mockErrorMessage is returned by injected failures
	mockErrorMessage = "Mock service error. Please retry."
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrUserNotFound      = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

// GetSessionData returns the session stored by JWTAuthMiddleware
func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

// mustSession returns the session of an authenticated route
func mustSession(c *gin.Context) *auth.SessionData {
	sessionData, ok := GetSessionData(c)
	if !ok {
		panic("session missing on authenticated route")
	}
	return sessionData
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// bindJSON binds the request body into obj, answering 400 on failure
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			err = validation.Describe(fieldErrs)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// JWTAuthMiddleware validates access tokens and loads the session
func JWTAuthMiddleware(issuer *auth.Issuer, db *gorm.DB, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		token, err := extractBearerToken(authHeader)
		if err != nil {
			var message string
			switch err {
			case ErrMissingAuthHeader:
				message = "Missing authorization header"
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			respondWithError(c, log, http.StatusUnauthorized, err, message)
			return
		}

		claims, err := issuer.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to validate JWT token")
			respondWithError(c, log, http.StatusUnauthorized, ErrInvalidToken, "Invalid or expired token")
			return
		}

		// Verify user exists in database
		var user models.User
		if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			log.Error().Err(err).Str("user_id", claims.UserID).Msg("User not found")
			respondWithError(c, log, http.StatusUnauthorized, ErrUserNotFound, "User not found")
			return
		}

		setSession(c, &auth.SessionData{
			UserID:   user.ID,
			Role:     user.Role,
			Username: user.Username,
		})

		c.Next()
	}
}

// RoleMiddleware ensures the authenticated user has role
func RoleMiddleware(role models.Role, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
			return
		}

		if sessionData.Role != role {
			respondWithError(c, log, http.StatusForbidden, errors.New("role mismatch"), "Forbidden")
			return
		}

		c.Next()
	}
}

// errorInjectionMiddleware fails a share of non-auth requests with a 500
func (s *Server) errorInjectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rate := s.config.Server.ErrorRate
		if rate <= 0 || strings.HasPrefix(c.Request.URL.Path, "/api/auth/") {
			c.Next()
			return
		}

		if s.failRoll() < rate {
			respondWithError(c, s.logger, http.StatusInternalServerError, errors.New("injected failure"), mockErrorMessage)
			return
		}

		c.Next()
	}
}
