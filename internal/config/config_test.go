package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CACHE_TTL", "")
	t.Setenv("CACHE_MAX_ENTRIES", "")
	t.Setenv("SMTP_PORT", "")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 4096, cfg.CacheMaxEntries)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshExpiry)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("CACHE_MAX_ENTRIES", "10")
	t.Setenv("LOG_RETENTION_DAYS", "7")

	cfg := Load()

	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 10, cfg.CacheMaxEntries)
	assert.Equal(t, 7, cfg.LogRetentionDays)
}

func TestLoadFallsBackOnGarbage(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	t.Setenv("CACHE_MAX_ENTRIES", "many")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 4096, cfg.CacheMaxEntries)
}

func TestValidate(t *testing.T) {
	cfg := &Config{JWTSecret: "s", DBPassword: "p", CacheTTL: time.Minute, CacheMaxEntries: 1}
	require.NoError(t, cfg.Validate())

	missingSecret := *cfg
	missingSecret.JWTSecret = ""
	assert.ErrorContains(t, missingSecret.Validate(), "JWT_SECRET")

	missingPassword := *cfg
	missingPassword.DBPassword = ""
	assert.ErrorContains(t, missingPassword.Validate(), "DB_PASSWORD")

	zeroTTL := *cfg
	zeroTTL.CacheTTL = 0
	assert.Error(t, zeroTTL.Validate())
}

func TestNotificationsEnabled(t *testing.T) {
	assert.False(t, (&Config{}).NotificationsEnabled())
	assert.False(t, (&Config{AMQPURL: "amqp://x"}).NotificationsEnabled())
	assert.True(t, (&Config{AMQPURL: "amqp://x", SMTPHost: "smtp"}).NotificationsEnabled())
}
