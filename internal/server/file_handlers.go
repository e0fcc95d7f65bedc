package server

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/ts-platform/portal/internal/models"
)

const (
	maxUploadBytes = 50 << 20
	octetStream    = "application/octet-stream"
)

// uploadFile stores the multipart "file" field and returns its attachment record
func (s *Server) uploadFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}

	id := ulid.Make().String()
	path := filepath.Join(s.config.Server.UploadDir, id)
	if err := c.SaveUploadedFile(header, path); err != nil {
		s.internalError(c, err, "Failed to store file")
		return
	}

	mimeType, err := detectMimeType(path, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.discardUpload(path)
		s.internalError(c, err, "Failed to inspect file")
		return
	}

	attachment := models.FileAttachment{
		ID:       id,
		Name:     filepath.Base(header.Filename),
		MimeType: mimeType,
		SizeKB:   (header.Size + 1023) / 1024,
		Kind:     fileKind(mimeType),
		URL:      "/api/files/" + id,
	}
	if err := s.db.Create(&attachment).Error; err != nil {
		s.discardUpload(path)
		s.internalError(c, err, "Failed to store file")
		return
	}

	s.logger.Info().
		Str("file_id", attachment.ID).
		Str("name", attachment.Name).
		Str("kind", string(attachment.Kind)).
		Int64("size_kb", attachment.SizeKB).
		Msg("File uploaded")
	c.JSON(http.StatusCreated, attachment)
}

// discardUpload removes a stored upload that has no attachment record
func (s *Server) discardUpload(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove orphaned upload")
	}
}

func (s *Server) downloadFile(c *gin.Context) {
	var attachment models.FileAttachment
	if !s.findOr404(c, &attachment, "File", "id = ?", c.Param("id")) {
		return
	}

	c.Header("Content-Type", attachment.MimeType)
	c.FileAttachment(filepath.Join(s.config.Server.UploadDir, attachment.ID), attachment.Name)
}

// detectMimeType prefers a declared type, then the file extension, then the content
func detectMimeType(path, name, declared string) (string, error) {
	if declared != "" && declared != octetStream {
		return stripParams(declared), nil
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return stripParams(byExt), nil
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to detect mime type: %w", err)
	}
	return stripParams(detected.String()), nil
}

func stripParams(mimeType string) string {
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mediaType
	}
	return mimeType
}

// fileKind groups a mime type into the kinds the portal displays
func fileKind(mimeType string) models.FileKind {
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return models.FileKindVideo
	case strings.Contains(mimeType, "presentation") || strings.Contains(mimeType, "powerpoint"):
		return models.FileKindSlides
	case strings.HasPrefix(mimeType, "text/"),
		mimeType == "application/pdf",
		mimeType == "application/rtf",
		mimeType == "application/msword",
		strings.Contains(mimeType, "wordprocessing"),
		strings.Contains(mimeType, "spreadsheet"),
		strings.Contains(mimeType, "ms-excel"),
		strings.Contains(mimeType, "opendocument.text"):
		return models.FileKindDocument
	case mimeType == "application/zip",
		mimeType == "application/gzip",
		mimeType == "application/x-tar",
		mimeType == "application/x-7z-compressed",
		mimeType == "application/vnd.rar",
		mimeType == "application/x-rar-compressed":
		return models.FileKindArchive
	}
	return models.FileKindOther
}
