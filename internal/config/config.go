// Package config manages application configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by StorageDriver
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageMemory = "memory"
)

const minProductionSecretLen = 32

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"

	// Persistence
	StorageDriver string
	DatabaseURL   string // sqlite file, used when StorageDriver is "sqlite"
	DataDir       string // directory of JSON blobs, used when StorageDriver is "file"

	// Security
	SecretKey     string // signs form tokens and CSRF cookies
	FormTokenTTL  time.Duration
	SecureCookies bool

	// Collaborator endpoints
	APIBaseURL    string
	SubmitDelay   time.Duration
	RemoteTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	port := getEnv("CONTACTDESK_PORT", "8080")
	env := getEnv("CONTACTDESK_ENV", "development")

	return &Config{
		Port:          port,
		Environment:   env,
		StorageDriver: strings.ToLower(getEnv("CONTACTDESK_STORAGE_DRIVER", StorageSQLite)),
		DatabaseURL:   getEnv("CONTACTDESK_DATABASE_URL", "contactdesk.db"),
		DataDir:       getEnv("CONTACTDESK_DATA_DIR", "data"),
		SecretKey:     getEnv("CONTACTDESK_SECRET_KEY", "dev-secret-key-change-in-production"),
		FormTokenTTL:  getDurationEnv("CONTACTDESK_FORM_TOKEN_TTL", time.Hour),
		SecureCookies: getBoolEnv("CONTACTDESK_SECURE_COOKIES", env == "production"),
		APIBaseURL:    strings.TrimRight(getEnv("CONTACTDESK_API_BASE_URL", "http://localhost:"+port), "/"),
		SubmitDelay:   getDurationEnv("CONTACTDESK_SUBMIT_DELAY", 1500*time.Millisecond),
		RemoteTimeout: getDurationEnv("CONTACTDESK_REMOTE_TIMEOUT", 10*time.Second),
		LogLevel:      getEnv("CONTACTDESK_LOG_LEVEL", "info"),
		LogFormat:     getEnv("CONTACTDESK_LOG_FORMAT", "text"),
	}
}

// Validate reports configuration the server cannot start with
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageSQLite, StorageFile, StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	if c.SecretKey == "" {
		return errors.New("secret key is required")
	}
	if c.IsProduction() && len(c.SecretKey) < minProductionSecretLen {
		return fmt.Errorf("secret key must be at least %d bytes in production", minProductionSecretLen)
	}

	if c.APIBaseURL == "" {
		return errors.New("api base url is required")
	}
	if c.RemoteTimeout <= 0 {
		return errors.New("remote timeout must be positive")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + c.Port
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
