package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Zero(t, cfg.Limit)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TRIAGE_CONCURRENCY", "4")
	t.Setenv("TRIAGE_LIMIT", "10")
	t.Setenv("TRIAGE_STATE_DIR", "/tmp/triage-state")
	t.Setenv("TRIAGE_MAX_RETRIES", "5")
	t.Setenv("TRIAGE_INITIAL_BACKOFF", "500ms")
	t.Setenv("TRIAGE_JOB_DELAY", "1s")

	cfg := LoadFromEnv()
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 10, cfg.Limit)
	assert.Equal(t, "/tmp/triage-state", cfg.StateDir)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, time.Second, cfg.JobDelay)
}

func TestLoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("TRIAGE_CONCURRENCY", "zero")
	t.Setenv("TRIAGE_LIMIT", "-3")
	t.Setenv("TRIAGE_INITIAL_BACKOFF", "soon")

	cfg := LoadFromEnv()
	defaults := DefaultConfig()
	assert.Equal(t, defaults.Concurrency, cfg.Concurrency)
	assert.Equal(t, defaults.Limit, cfg.Limit)
	assert.Equal(t, defaults.InitialBackoff, cfg.InitialBackoff)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"negative limit", func(c *Config) { c.Limit = -1 }},
		{"empty state dir", func(c *Config) { c.StateDir = "" }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"zero backoff", func(c *Config) { c.InitialBackoff = 0 }},
		{"max below initial", func(c *Config) { c.MaxBackoff = time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
