package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr)
	assert.Equal(t, 300*time.Second, cfg.Workflow.DefaultTimeout)
	assert.Equal(t, 0, cfg.Redis.EscalationJobsDB)
	assert.Equal(t, 4, cfg.Redis.IdempotencyDB)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SENTINEL_HTTP_ADDR", ":9090")
	t.Setenv("SENTINEL_ESCALATION_WORKERS", "9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.ListenAddr)
	assert.Equal(t, 9, cfg.Escalation.WorkerCount)
}

func TestOptionsOverrideEnv(t *testing.T) {
	t.Setenv("SENTINEL_HTTP_ADDR", ":9090")

	cfg, err := Load(WithListenAddr(":7070"), WithDevelopment(true))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.ListenAddr)
	assert.True(t, cfg.Development)
}

func TestValidateRejectsDuplicateRedisDB(t *testing.T) {
	_, err := Load(func(c *Config) { c.Redis.WorkflowDispatchDB = c.Redis.EscalationJobsDB })
	require.Error(t, err)
}

func TestValidateRejectsEmptyDSN(t *testing.T) {
	_, err := Load(func(c *Config) { c.Postgres.DSN = "" })
	require.Error(t, err)
}
