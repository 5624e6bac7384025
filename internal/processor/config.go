package processor

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds job processor configuration.
type Config struct {
	// Concurrency is the worker pool size per combination. Minimum 1.
	// Default 1: safe for strict-limit backends; raise it for permissive
	// ones.
	Concurrency int

	// Limit caps how many groups each combination processes. 0 = all.
	Limit int

	// StateDir is where per-combination state documents live.
	StateDir string

	// MaxRetries is how many times a rate-limit-class failure is retried
	// before the job is marked failed. Other failures are never retried.
	MaxRetries int

	// InitialBackoff is the first retry delay; it doubles per attempt up
	// to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// JobDelay paces provider calls when Concurrency is 1, for backends
	// with strict request-rate limits. 0 disables pacing.
	JobDelay time.Duration

	// CombinationDelay is an optional pause between combinations to
	// respect external rate budgets.
	CombinationDelay time.Duration
}

// DefaultConfig returns the default processor configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:    1,
		StateDir:       ".triage/state",
		MaxRetries:     3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     60 * time.Second,
	}
}

// LoadFromEnv loads processor configuration from TRIAGE_* environment
// variables layered over the defaults.
func LoadFromEnv() Config {
	cfg := DefaultConfig()

	if val := os.Getenv("TRIAGE_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 1 {
			cfg.Concurrency = n
		}
	}
	if val := os.Getenv("TRIAGE_LIMIT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			cfg.Limit = n
		}
	}
	if val := os.Getenv("TRIAGE_STATE_DIR"); val != "" {
		cfg.StateDir = val
	}
	if val := os.Getenv("TRIAGE_MAX_RETRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if val := os.Getenv("TRIAGE_INITIAL_BACKOFF"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.InitialBackoff = d
		}
	}
	if val := os.Getenv("TRIAGE_JOB_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d >= 0 {
			cfg.JobDelay = d
		}
	}
	if val := os.Getenv("TRIAGE_COMBINATION_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d >= 0 {
			cfg.CombinationDelay = d
		}
	}
	return cfg
}

// Validate checks the configuration for safe values.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", c.Limit)
	}
	if c.StateDir == "" {
		return fmt.Errorf("state directory is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got %d", c.MaxRetries)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial backoff must be positive, got %v", c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max backoff %v is below initial backoff %v", c.MaxBackoff, c.InitialBackoff)
	}
	return nil
}
