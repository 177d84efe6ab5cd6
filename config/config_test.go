package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var configKeys = []string{
	"DATABASE_URL", "REDIS_ADDR", "REDIS_DB", "MEMCACHE_ADDR", "RENDER_MODE",
	"REQUEST_MIN_INTERVAL", "MAX_CONCURRENCY", "PAGE_TIMEOUT", "RUN_INTERVAL", "RETENTION_WINDOW",
	"DEDUP_LISTINGS", "PUBLISH_ENABLED", "SAILINGS_ENVIRONMENT",
}

func clearEnv(t *testing.T) {
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)

	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "sqlite:sailings.db", config.DatabaseURL)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 0, config.RedisDB)
	assert.Equal(t, "", config.MemcacheAddr)
	assert.Equal(t, RenderHTTP, config.RenderMode)
	assert.Equal(t, 800*time.Millisecond, config.RequestMinInterval)
	assert.Equal(t, 1, config.MaxConcurrency)
	assert.Equal(t, 45*time.Second, config.PageTimeout)
	assert.True(t, config.DedupListings)
	assert.False(t, config.PublishEnabled)
	assert.NoError(t, config.Validate())

	// Test with environment variables
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/sailings")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")
	t.Setenv("RENDER_MODE", "Chrome")
	t.Setenv("REQUEST_MIN_INTERVAL", "2s")
	t.Setenv("PAGE_TIMEOUT", "30")
	t.Setenv("RETENTION_WINDOW", "48h")
	t.Setenv("DEDUP_LISTINGS", "false")
	t.Setenv("MAX_CONCURRENCY", "3")

	config = LoadConfig()
	assert.Equal(t, "postgres://u:p@db:5432/sailings", config.DatabaseURL)
	assert.Equal(t, 2, config.RedisDB)
	assert.Equal(t, "memcache.example.com:11211", config.MemcacheAddr)
	assert.Equal(t, RenderChrome, config.RenderMode)
	assert.Equal(t, 2*time.Second, config.RequestMinInterval)
	assert.Equal(t, 30*time.Second, config.PageTimeout)
	assert.Equal(t, 48*time.Hour, config.RetentionWindow)
	assert.False(t, config.DedupListings)
	assert.Equal(t, 3, config.MaxConcurrency)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database", func(c *Config) { c.DatabaseURL = " " }},
		{"unknown render mode", func(c *Config) { c.RenderMode = "lynx" }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }},
		{"zero page timeout", func(c *Config) { c.PageTimeout = 0 }},
		{"zero run interval", func(c *Config) { c.RunInterval = 0 }},
		{"negative run interval", func(c *Config) { c.RunInterval = -time.Minute }},
		{"negative retention", func(c *Config) { c.RetentionWindow = -time.Hour }},
		{"publish without stream", func(c *Config) { c.PublishEnabled = true; c.RedisStream = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := LoadConfig()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
