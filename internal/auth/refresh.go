package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/ts-platform/portal/internal/assert"
)

const refreshTokenBytes = 32

// NewRefreshToken returns an opaque refresh token and the hash to store for it
func NewRefreshToken() (token, hash string, err error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	assert.NotEmpty("refresh token", token)
	return token, HashRefreshToken(token), nil
}

// HashRefreshToken returns the stored form of a refresh token
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	hash := hex.EncodeToString(sum[:])
	assert.Length(hash, sha256.Size*2)
	return hash
}
