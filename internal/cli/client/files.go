package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/ts-platform/portal/internal/models"
)

// UploadFile uploads content as a multipart "file" field and returns the stored attachment
func (c *Client) UploadFile(ctx context.Context, name string, content io.Reader) (*models.FileAttachment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req := &Request{
		Method:      http.MethodPost,
		Path:        "/files",
		Body:        buf.Bytes(),
		ContentType: writer.FormDataContentType(),
	}

	var attachment models.FileAttachment
	if err := c.Do(ctx, req, &attachment); err != nil {
		return nil, err
	}
	return &attachment, nil
}
