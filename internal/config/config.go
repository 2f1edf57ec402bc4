package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Lead cache
	CacheTTL        time.Duration
	CacheMaxEntries int

	// Notifications
	AMQPURL      string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	// Logging
	LogLevel         string
	LogRetentionDays int

	// Server
	Port        string
	CORSOrigins string
	SentryDSN   string
	AppEnv      string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "realty_crm"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		CacheTTL:        parseDuration(getEnv("CACHE_TTL", "5m"), 5*time.Minute),
		CacheMaxEntries: parseInt(getEnv("CACHE_MAX_ENTRIES", "4096"), 4096),

		AMQPURL:      getEnv("AMQP_URL", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     parseInt(getEnv("SMTP_PORT", "587"), 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@realty-crm.local"),

		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
		AppEnv:      getEnv("APP_ENV", "development"),
	}
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if c.DBPassword == "" {
		return errors.New("DB_PASSWORD environment variable is required")
	}
	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}
	if c.CacheMaxEntries <= 0 {
		return errors.New("CACHE_MAX_ENTRIES must be positive")
	}
	return nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// NotificationsEnabled is true when both the broker and the mail relay are configured.
func (c *Config) NotificationsEnabled() bool {
	return c.AMQPURL != "" && c.SMTPHost != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
