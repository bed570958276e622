package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/darkodi/shortlink/internal/logger"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Shortener ShortenerConfig
	Analytics AnalyticsConfig
	Auth      AuthConfig
	App       AppConfig
	Log       logger.Config
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Driver string // "sqlite3" or "postgres"
	Path   string // sqlite file path
	URL    string // postgres connection string
}

// DSN returns the data source name for the configured driver
func (d DatabaseConfig) DSN() string {
	if d.Driver == "postgres" {
		return d.URL
	}
	return d.Path
}

// CacheConfig holds resolution cache settings
type CacheConfig struct {
	Backend       string // "memory" or "redis"
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// RateLimitConfig holds sliding-window limiter settings for link creation
type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
	Cleanup     time.Duration // 0 disables idle-key cleanup
	LoginMax    int           // admin login attempts per window and IP
}

// ShortenerConfig holds code generation and URL admission settings
type ShortenerConfig struct {
	CodeLength      int
	BlockedDomains  []string
	BlockPrivateIPs bool
	FallbackURL     string // where unresolvable codes are redirected
}

// AnalyticsConfig holds click recorder settings
type AnalyticsConfig struct {
	Workers     int
	BufferSize  int
	GeoIPDBPath string
}

// AuthConfig holds admin session and seed user settings
type AuthConfig struct {
	JWTSecret     string
	SessionTTL    time.Duration
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	BaseURL     string
	Environment string // "development", "production", "testing"
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite3"),
			Path:   getEnv("DB_PATH", "./data/urls.db"),
			URL:    getEnv("DATABASE_URL", ""),
		},
		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", "memory"),
			TTL:           getDurationEnv("CACHE_TTL", 300*time.Second),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getBoolEnv("RATE_LIMIT_ENABLED", true),
			MaxRequests: getIntEnv("RATE_LIMIT_MAX", 10),
			Window:      getDurationEnv("RATE_LIMIT_WINDOW", 60*time.Second),
			Cleanup:     getDurationEnv("RATE_LIMIT_CLEANUP", 5*time.Minute),
			LoginMax:    getIntEnv("LOGIN_RATE_LIMIT_MAX", 5),
		},
		Shortener: ShortenerConfig{
			CodeLength:      getIntEnv("CODE_LENGTH", 6),
			BlockedDomains:  getListEnv("BLOCKED_DOMAINS", []string{"malicious-site.com", "phishing-example.org", "fake-bank.net"}),
			BlockPrivateIPs: getBoolEnv("BLOCK_PRIVATE_IPS", false),
			FallbackURL:     getEnv("FALLBACK_URL", "/"),
		},
		Analytics: AnalyticsConfig{
			Workers:     getIntEnv("ANALYTICS_WORKERS", 2),
			BufferSize:  getIntEnv("ANALYTICS_BUFFER", 1000),
			GeoIPDBPath: getEnv("GEOIP_DB_PATH", ""),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			SessionTTL:    getDurationEnv("SESSION_TTL", 12*time.Hour),
			AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
			AdminEmail:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		},
		App: AppConfig{
			BaseURL:     getEnv("BASE_URL", ""),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Log: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
	cfg.Log.Environment = cfg.App.Environment

	// Set default BaseURL if not provided
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret == "" && !cfg.IsProduction() {
		cfg.Auth.JWTSecret = "dev-secret-change-me"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %s (must be 1-65535)", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("database path cannot be empty")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite3 or postgres)", c.Database.Driver)
	}

	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("invalid cache backend: %s (must be memory or redis)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache TTL must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.MaxRequests < 1 || c.RateLimit.LoginMax < 1 || c.RateLimit.Window <= 0) {
		return errors.New("rate limit needs a positive max and window")
	}

	if c.Shortener.CodeLength < 4 || c.Shortener.CodeLength > 20 {
		return fmt.Errorf("invalid code length: %d (must be 4-20)", c.Shortener.CodeLength)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}

	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
		"testing":     true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, production, or testing)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ============================================================
// HELPER FUNCTIONS
// ============================================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getListEnv splits a comma separated value, dropping blanks
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
