package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, "6379", cfg.Redis.Port)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.False(t, cfg.Features.Authentication)
	assert.True(t, cfg.Features.WebSocket)
	assert.Equal(t, 15*time.Minute, cfg.Features.RateLimit.Window)
	assert.Equal(t, 1000, cfg.Features.RateLimit.Max)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("FEATURE_WEBSOCKET", "false")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("RATE_LIMIT_MAX", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Address())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.False(t, cfg.Features.WebSocket)
	assert.Equal(t, time.Minute, cfg.Features.RateLimit.Window)
	assert.Equal(t, 50, cfg.Features.RateLimit.Max)
}

func TestValidateRejectsBadRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_MAX", "-5")

	_, err := Load()
	assert.Error(t, err)
}
