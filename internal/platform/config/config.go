// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	AI       AIConfig
	Progress ProgressConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL selects
// the in-memory store.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings for the suggestion cache.
// An empty URL disables caching.
type CacheConfig struct {
	URL           string
	SuggestionTTL time.Duration
}

// AIConfig holds the suggestion provider settings. An empty API key disables
// AI suggestions; the engine then serves the generic fallback set.
type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// ProgressConfig holds progress engine settings.
type ProgressConfig struct {
	TotalChapters  int
	RoadmapPath    string // directory of skill YAML files; empty uses the built-in registry
	SuggestTimeout time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL:           envStr("LEARN_CACHE_URL", ""),
			SuggestionTTL: envDur("LEARN_CACHE_SUGGESTION_TTL", 15*time.Minute),
		},
		AI: AIConfig{
			APIKey:  envStr("LEARN_AI_API_KEY", ""),
			BaseURL: envStr("LEARN_AI_BASE_URL", ""),
			Model:   envStr("LEARN_AI_MODEL", "gpt-4o-mini"),
		},
		Progress: ProgressConfig{
			TotalChapters:  envInt("LEARN_PROGRESS_TOTAL_CHAPTERS", 10),
			RoadmapPath:    envStr("LEARN_PROGRESS_ROADMAP_PATH", ""),
			SuggestTimeout: envDur("LEARN_PROGRESS_SUGGEST_TIMEOUT", 3*time.Second),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("LEARN_SERVER_PORT must be 1-65535, got %d", c.Server.Port)
	}
	if c.Progress.TotalChapters <= 0 {
		return fmt.Errorf("LEARN_PROGRESS_TOTAL_CHAPTERS must be positive, got %d", c.Progress.TotalChapters)
	}
	if c.Progress.SuggestTimeout <= 0 {
		return fmt.Errorf("LEARN_PROGRESS_SUGGEST_TIMEOUT must be positive, got %s", c.Progress.SuggestTimeout)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}

// HasAIProvider returns true if the AI suggestion provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.APIKey != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
