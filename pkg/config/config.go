// Package config loads process configuration from the environment,
// seeded from an optional .env file in the working directory. Flags on
// the command line override whatever is loaded here.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process-level settings.
type Config struct {
	// AccessToken is the Figma personal access token (FIGMA_API_KEY).
	AccessToken string

	// LogLevel is the stderr log level: debug, info, warn, or error
	// (FIGMA_MCP_LOG_LEVEL, default "info").
	LogLevel string

	// DownloadConcurrency bounds simultaneous asset downloads
	// (FIGMA_DOWNLOAD_CONCURRENCY, default 5).
	DownloadConcurrency int

	// PNGScale is the default raster export scale
	// (FIGMA_PNG_SCALE, default 2).
	PNGScale float64
}

// Load reads configuration from a .env file (if present) and the
// environment. Missing values fall back to defaults; the access token
// has no default and is validated by the caller.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AccessToken:         strings.TrimSpace(os.Getenv("FIGMA_API_KEY")),
		LogLevel:            envString("FIGMA_MCP_LOG_LEVEL", "info"),
		DownloadConcurrency: envInt("FIGMA_DOWNLOAD_CONCURRENCY", 5),
		PNGScale:            envFloat("FIGMA_PNG_SCALE", 2),
	}
}

func envString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
