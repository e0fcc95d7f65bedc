package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// internalError logs err and answers 500 with message
func (s *Server) internalError(c *gin.Context, err error, message string) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

// findOr404 loads the row matching query into dest. It answers 404 naming what
// when no row matches and reports whether the handler may continue.
func (s *Server) findOr404(c *gin.Context, dest any, what string, query string, args ...any) bool {
	if err := s.db.Where(query, args...).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
			return false
		}
		s.internalError(c, err, "Failed to load "+what)
		return false
	}
	return true
}

var errUnknownStudent = errors.New("unknown student")

func isUnknownStudent(err error) bool {
	return errors.Is(err, errUnknownStudent)
}
