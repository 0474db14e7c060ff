package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	RedisURL    string

	// Cache tuning
	MaxCachedMessagesPerRoom int           // sorted-set cap per room
	MessageCacheTTL          time.Duration // sliding retention window
	UserBlockCacheTTL        time.Duration // 0 = never expire
	PinnedCacheTTL           time.Duration // safety TTL on pin structures

	// Observability
	MonitoringEnabled bool
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		MaxCachedMessagesPerRoom: getEnvInt("MAX_CACHED_MESSAGES_PER_ROOM", 500),
		MessageCacheTTL:          time.Duration(getEnvInt("MESSAGE_CACHE_TTL_HOURS", 24)) * time.Hour,
		UserBlockCacheTTL:        time.Duration(getEnvInt("USER_BLOCK_CACHE_TTL_HOURS", 0)) * time.Hour,
		PinnedCacheTTL:           time.Duration(getEnvInt("PINNED_CACHE_TTL_DAYS", 7)) * 24 * time.Hour,

		MonitoringEnabled: getEnv("MONITORING_ENABLED", "true") == "true",
	}

	// In production, require database and redis URLs
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
