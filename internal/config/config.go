// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port         string
	FrontendURL  string
	BusinessName string
	LogLevel     slog.Level

	Store     StoreConfig
	Lifecycle LifecycleConfig
	Knowledge KnowledgeConfig

	CORSAllowedOrigins []string
}

// StoreConfig selects and locates the repository.
type StoreConfig struct {
	Driver string // "memory" or "sqlite"
	DBPath string
}

// LifecycleConfig controls request timeouts.
type LifecycleConfig struct {
	SLAWindow     time.Duration
	SweepInterval time.Duration
	EventLogCap   int
}

// KnowledgeConfig controls the starter knowledge base.
type KnowledgeConfig struct {
	Seed     bool
	SeedPath string // empty means the built-in salon answers
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		FrontendURL:  getEnv("FRONTEND_URL", ""),
		BusinessName: getEnv("BUSINESS_NAME", "Bella's Beauty Salon"),
		LogLevel:     getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "memory"),
			DBPath: getEnv("DB_PATH", "./data/frontdesk.db"),
		},
		Lifecycle: LifecycleConfig{
			SLAWindow:     getEnvDuration("SLA_WINDOW", 30*time.Minute),
			SweepInterval: getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
			EventLogCap:   getEnvInt("EVENT_LOG_CAP", 1000),
		},
		Knowledge: KnowledgeConfig{
			Seed:     getEnvBool("SEED_KNOWLEDGE", true),
			SeedPath: getEnv("KNOWLEDGE_SEED_PATH", ""),
		},
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty with the sqlite driver")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be memory or sqlite, got %q", c.Store.Driver)
	}
	if c.Lifecycle.SLAWindow <= 0 {
		return fmt.Errorf("SLA_WINDOW must be > 0")
	}
	if c.Lifecycle.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0")
	}
	if c.Lifecycle.EventLogCap <= 0 {
		return fmt.Errorf("EVENT_LOG_CAP must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s", "30m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
