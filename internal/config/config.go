package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/unclebandit/phonathon-backend/internal/db"
)

// Config is everything the binaries read from the environment.
type Config struct {
	DB db.Options

	HTTPAddr string
	LogLevel string
	LogDev   bool

	// AMQPURL enables RabbitMQ for upload reports. Empty keeps them in memory.
	AMQPURL string

	SessionTTL     time.Duration
	SessionCookie  string
	CookieSecure   bool
	AdminPassword  string
	UploadMaxBytes int64
}

// Load reads .env files when present, then the process environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() (*Config, error) {
	driver, err := db.ParseDialect(getenv("DB_DRIVER", "sqlite"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DB: db.Options{
			Driver:   driver,
			URL:      os.Getenv("DATABASE_URL"),
			User:     getenv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenv("DB_PORT", "5432"),
			Name:     getenv("DB_NAME", "phonathon"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
			Path:     getenv("SQLITE_PATH", "data/phonathon.db"),
		},
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
		AMQPURL:       os.Getenv("AMQP_URL"),
		SessionCookie: getenv("SESSION_COOKIE", "sessionid"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.LogDev, err = strconv.ParseBool(getenv("LOG_DEV", "false")); err != nil {
		return nil, fmt.Errorf("LOG_DEV: %w", err)
	}
	if cfg.CookieSecure, err = strconv.ParseBool(getenv("COOKIE_SECURE", "false")); err != nil {
		return nil, fmt.Errorf("COOKIE_SECURE: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(getenv("SESSION_TTL", "336h")); err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	if cfg.UploadMaxBytes, err = strconv.ParseInt(getenv("UPLOAD_MAX_BYTES", "10485760"), 10, 64); err != nil {
		return nil, fmt.Errorf("UPLOAD_MAX_BYTES: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.UploadMaxBytes)
	}
	if c.SessionCookie == "" {
		return errors.New("SESSION_COOKIE must not be empty")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
