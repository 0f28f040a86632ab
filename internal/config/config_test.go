package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "STORE_DRIVER", "DB_PATH", "SLA_WINDOW", "SWEEP_INTERVAL",
		"EVENT_LOG_CAP", "SEED_KNOWLEDGE", "KNOWLEDGE_SEED_PATH",
		"CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "BUSINESS_NAME", "FRONTEND_URL",
	} {
		// Setenv first so the original value is restored after the test.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Lifecycle.SLAWindow)
	assert.Equal(t, 5*time.Minute, cfg.Lifecycle.SweepInterval)
	assert.Equal(t, 1000, cfg.Lifecycle.EventLogCap)
	assert.True(t, cfg.Knowledge.Seed)
	assert.Empty(t, cfg.Knowledge.SeedPath)
	assert.Equal(t, "Bella's Beauty Salon", cfg.BusinessName)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/fd.db")
	t.Setenv("SLA_WINDOW", "90")
	t.Setenv("SWEEP_INTERVAL", "1m")
	t.Setenv("EVENT_LOG_CAP", "50")
	t.Setenv("SEED_KNOWLEDGE", "off")
	t.Setenv("KNOWLEDGE_SEED_PATH", "/etc/frontdesk/seed.yaml")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BUSINESS_NAME", "Main Street Barbers")
	t.Setenv("FRONTEND_URL", "https://desk.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/fd.db", cfg.Store.DBPath)
	assert.Equal(t, 90*time.Second, cfg.Lifecycle.SLAWindow)
	assert.Equal(t, time.Minute, cfg.Lifecycle.SweepInterval)
	assert.Equal(t, 50, cfg.Lifecycle.EventLogCap)
	assert.False(t, cfg.Knowledge.Seed)
	assert.Equal(t, "/etc/frontdesk/seed.yaml", cfg.Knowledge.SeedPath)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.False(t, cfg.IsDevelopment())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:  "8080",
			Store: StoreConfig{Driver: "memory"},
			Lifecycle: LifecycleConfig{
				SLAWindow:     time.Minute,
				SweepInterval: time.Minute,
				EventLogCap:   10,
			},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Store.Driver = "sqlite"; c.Store.DBPath = "" }},
		{"zero window", func(c *Config) { c.Lifecycle.SLAWindow = 0 }},
		{"zero sweep", func(c *Config) { c.Lifecycle.SweepInterval = 0 }},
		{"zero event cap", func(c *Config) { c.Lifecycle.EventLogCap = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
