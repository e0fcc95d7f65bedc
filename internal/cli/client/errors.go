package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const maxMessageLength = 200

// Error is a non-2xx response from the API
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Body       []byte
}

func newError(method, path string, statusCode int, body []byte) *Error {
	return &Error{
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Message:    messageFromBody(body),
		Body:       body,
	}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s failed (status %d)", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// messageFromBody extracts {"error": ...} or {"message": ...}, falling back to the raw text
func messageFromBody(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxMessageLength {
		text = text[:maxMessageLength] + "..."
	}
	return text
}

// RefreshError reports that the session could not be renewed and has been cleared
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("session expired, please log in again: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 response
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
