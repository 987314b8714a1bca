// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devJWTSecret is only accepted when APP_ENV=development.
const devJWTSecret = "coincious-development-secret-change-me"

// DefaultDBPath is used when DB_PATH is unset.
const DefaultDBPath = "./data/coincious.db"

// ErrMissingJWTSecret is returned outside development when JWT_SECRET is unset.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required outside development")

// Config holds every runtime setting of the server.
type Config struct {
	Env      string
	Port     int
	DBPath   string
	LogLevel string

	JWTSecret string
	TokenTTL  time.Duration

	CORSOrigins []string
	AppBaseURL  string
	// TrustedProxies lists proxy IPs or CIDR ranges whose X-Real-IP and
	// X-Forwarded-For headers are believed. Empty trusts none.
	TrustedProxies []string

	PostmarkToken string
	EmailFrom     string

	AssistantURL    string
	AssistantAPIKey string

	RecurringInterval time.Duration
}

// Development reports whether the server runs in development mode.
func (c Config) Development() bool {
	return c.Env == "development"
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads a .env file when present and builds a Config from the
// environment.
func Load() (Config, error) {
	LoadEnvFile()
	return FromEnv()
}

// LoadEnvFile loads .env into the environment without overriding variables
// that are already set. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// FromEnv builds a Config from the current process environment.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:             GetEnv("APP_ENV", "production"),
		DBPath:          GetEnv("DB_PATH", DefaultDBPath),
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		AppBaseURL:      strings.TrimRight(GetEnv("APP_BASE_URL", "http://localhost:5173"), "/"),
		PostmarkToken:   os.Getenv("POSTMARK_TOKEN"),
		EmailFrom:       GetEnv("EMAIL_FROM", "no-reply@coincious.app"),
		AssistantURL:    strings.TrimRight(os.Getenv("ASSISTANT_URL"), "/"),
		AssistantAPIKey: os.Getenv("ASSISTANT_API_KEY"),
	}

	port, err := strconv.Atoi(GetEnv("PORT", "8000"))
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %q", os.Getenv("PORT"))
	}
	cfg.Port = port

	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RecurringInterval, err = durationEnv("RECURRING_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}

	cfg.CORSOrigins = splitList(GetEnv("CORS_ORIGINS", "*"))
	cfg.TrustedProxies = splitList(os.Getenv("TRUSTED_PROXIES"))

	if cfg.JWTSecret == "" {
		if !cfg.Development() {
			return Config{}, ErrMissingJWTSecret
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// GetEnv retrieves the value of an environment variable with a fallback value if not set.
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}
