package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/notework/collab/internal/domain"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port string

	// Documents
	BaseDir         string
	PreviewCacheDir string
	TypstBin        string

	// Security
	AllowedOrigins []string

	// Rate Limiting
	RateLimitAPI rate.Limit
	RateLimitWS  rate.Limit

	// Logging
	LogLevel string
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	base, _ := os.Getwd()
	return &Config{
		Port:            "8080",
		BaseDir:         base,
		PreviewCacheDir: filepath.Join(base, "build", ".preview_cache"),
		AllowedOrigins:  []string{"http://localhost:8080", "http://localhost:3000"},
		RateLimitAPI:    domain.DefaultRateLimitAPI,
		RateLimitWS:     domain.DefaultRateLimitWS,
		LogLevel:        "info", // Options: info, silent
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	if dir := os.Getenv("BASE_DIR"); dir != "" {
		cfg.BaseDir = dir
		cfg.PreviewCacheDir = filepath.Join(dir, "build", ".preview_cache")
	}

	if dir := os.Getenv("PREVIEW_CACHE_DIR"); dir != "" {
		cfg.PreviewCacheDir = dir
	}

	if bin := os.Getenv("TYPST_BIN"); bin != "" {
		cfg.TypstBin = bin
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if rl := os.Getenv("RATE_LIMIT_API"); rl != "" {
		if val, err := strconv.Atoi(rl); err == nil && val > 0 {
			cfg.RateLimitAPI = rate.Limit(val)
		}
	}

	if rl := os.Getenv("RATE_LIMIT_WS"); rl != "" {
		if val, err := strconv.Atoi(rl); err == nil && val > 0 {
			cfg.RateLimitWS = rate.Limit(val)
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg
}

// parseOrigins parses comma-separated origins
func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Global configuration instance
var AppConfig = LoadFromEnv()
