package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all client configuration.
type Config struct {
	BaseURL     string
	AccessToken string
	LogLevel    string
	LogFormat   string
	// HTTPTimeout bounds every single API request. There is no retry
	// anywhere in the client; a timed-out request is a failed request.
	HTTPTimeout time.Duration
	// AutosaveWindow is the trailing-edge debounce window for answer
	// autosave. Rapid edits inside one window collapse into one write.
	AutosaveWindow time.Duration
	// TickInterval is the countdown resolution for timed attempts.
	TickInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		BaseURL:        getEnv("ASSESSLY_BASE_URL", "http://localhost:8080/api/v1"),
		AccessToken:    getEnv("ASSESSLY_TOKEN", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "pretty"),
		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT_SECONDS", 10) * time.Second,
		AutosaveWindow: getEnvDuration("AUTOSAVE_WINDOW_MS", 400) * time.Millisecond,
		TickInterval:   time.Second,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(fallback)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return time.Duration(fallback)
	}
	return time.Duration(n)
}
