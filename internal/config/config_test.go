package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bakehouse")
	t.Setenv("APP_ENV", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, int32(20), cfg.Postgres.MaxConns)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.IdempotencyEnabled)
	assert.Equal(t, time.Second, cfg.Worker.OutboxInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bakehouse")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("IDEMPOTENCY_ENABLED", "true")
	t.Setenv("OUTBOX_INTERVAL", "250ms")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.IdempotencyEnabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.OutboxInterval)
	assert.Equal(t, int32(20), cfg.Postgres.MaxConns)
}

func TestValidate(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
