package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the mock API
type Config struct {
	// Server Configuration
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Auth Configuration
	Auth AuthConfig

	// Logging Configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Port        string
	UploadDir   string
	CORSOrigins []string
	// ErrorRate is the share of API requests answered with a 500, between 0 and 1
	ErrorRate float64
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds token configuration
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	accessTTL, err := durationEnv("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := durationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	errorRate := 0.0
	if raw := os.Getenv("MOCK_ERROR_RATE"); raw != "" {
		errorRate, err = strconv.ParseFloat(raw, 64)
		if err != nil || errorRate < 0 || errorRate > 1 {
			return nil, fmt.Errorf("MOCK_ERROR_RATE must be a number between 0 and 1, got %q", raw)
		}
	}

	// The secret only signs tokens of the local mock; dev default is fine
	jwtSecret := getEnv("JWT_SECRET", "ts-platform-mock-secret")

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "4000"),
			UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
			ErrorRate:   errorRate,
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "ts-platform.sqlite"),
		},
		Auth: AuthConfig{
			JWTSecret:       jwtSecret,
			AccessTokenTTL:  accessTTL,
			RefreshTokenTTL: refreshTTL,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
