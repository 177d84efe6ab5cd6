package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"sjsage522/sailingworker/pkg/errors"
)

// Render modes
const (
	RenderHTTP   = "http"
	RenderChrome = "chrome"
)

// Config represents the application configuration
type Config struct {
	// Store
	DatabaseURL string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int
	PublishEnabled       bool

	// Memcache configuration
	MemcacheAddr      string
	DiscoveryCacheTTL time.Duration

	// Rendering
	RenderMode    string
	ChromePath    string
	UserAgent     string
	RespectRobots bool

	// Politeness and timeouts
	RequestMinInterval time.Duration
	MaxConcurrency     int
	PageTimeout        time.Duration
	RunTimeout         time.Duration
	RunInterval        time.Duration

	// Pipeline behaviour
	RetentionWindow time.Duration
	DedupListings   bool

	// Files
	ErrorLogFile string
	TargetsFile  string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		DatabaseURL:          getEnv("DATABASE_URL", "sqlite:sailings.db"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "sailings"),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 10000),
		PublishEnabled:       getEnvBool("PUBLISH_ENABLED", false),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		DiscoveryCacheTTL:    getEnvDuration("DISCOVERY_CACHE_TTL", 24*time.Hour),
		RenderMode:           strings.ToLower(getEnv("RENDER_MODE", RenderHTTP)),
		ChromePath:           getEnv("CHROME_PATH", ""),
		UserAgent:            getEnv("USER_AGENT", ""),
		RespectRobots:        getEnvBool("RESPECT_ROBOTS", true),
		RequestMinInterval:   getEnvDuration("REQUEST_MIN_INTERVAL", 800*time.Millisecond),
		MaxConcurrency:       getEnvInt("MAX_CONCURRENCY", 1),
		PageTimeout:          getEnvDuration("PAGE_TIMEOUT", 45*time.Second),
		RunTimeout:           getEnvDuration("RUN_TIMEOUT", 30*time.Minute),
		RunInterval:          getEnvDuration("RUN_INTERVAL", 6*time.Hour),
		RetentionWindow:      getEnvDuration("RETENTION_WINDOW", 0),
		DedupListings:        getEnvBool("DEDUP_LISTINGS", true),
		ErrorLogFile:         getEnv("ERROR_LOG_FILE", "error.log"),
		TargetsFile:          getEnv("TARGETS_FILE", "targets.json5"),
		Environment:          getEnv("SAILINGS_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.NewConfiguration("DATABASE_URL is required", nil)
	}
	if c.RenderMode != RenderHTTP && c.RenderMode != RenderChrome {
		return errors.NewConfiguration("unknown RENDER_MODE "+strconv.Quote(c.RenderMode), nil)
	}
	if c.MaxConcurrency < 1 {
		return errors.NewConfiguration("MAX_CONCURRENCY must be at least 1", nil)
	}
	if c.PageTimeout <= 0 || c.RunTimeout <= 0 {
		return errors.NewConfiguration("PAGE_TIMEOUT and RUN_TIMEOUT must be positive", nil)
	}
	if c.RunInterval <= 0 {
		return errors.NewConfiguration("RUN_INTERVAL must be positive", nil)
	}
	if c.RequestMinInterval < 0 || c.RetentionWindow < 0 {
		return errors.NewConfiguration("REQUEST_MIN_INTERVAL and RETENTION_WINDOW cannot be negative", nil)
	}
	if c.PublishEnabled && c.RedisStream == "" {
		return errors.NewConfiguration("REDIS_STREAM is required when publishing", nil)
	}
	return nil
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration accepts Go durations ("800ms") or bare integers as seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}
