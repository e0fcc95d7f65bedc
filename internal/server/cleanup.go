package server

import (
	"time"

	"github.com/ts-platform/portal/internal/models"
)

// purgeRefreshTokens deletes refresh tokens that expired or were revoked before now
func (s *Server) purgeRefreshTokens(now time.Time) (int64, error) {
	result := s.db.
		Where("expires_at <= ? OR (revoked_at IS NOT NULL AND revoked_at <= ?)", now.UTC(), now.UTC()).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.logger.Info().Int64("deleted", result.RowsAffected).Msg("Purged refresh tokens")
	}
	return result.RowsAffected, nil
}
