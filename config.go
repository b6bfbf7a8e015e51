package fetchguard

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables read once at factory construction time. Values in
// milliseconds carry the _MS suffix.
const (
	EnvMaxRetries       = "JOBBOT_HTTP_MAX_RETRIES"
	EnvBackoffMs        = "JOBBOT_HTTP_BACKOFF_MS"
	EnvBackoffFactor    = "JOBBOT_HTTP_BACKOFF_FACTOR"
	EnvBreakerThreshold = "JOBBOT_HTTP_CIRCUIT_BREAKER_THRESHOLD"
	EnvBreakerResetMs   = "JOBBOT_HTTP_CIRCUIT_BREAKER_RESET_MS"
	EnvRateLimitMs      = "JOBBOT_HTTP_RATE_LIMIT_MS"
)

// Config holds the per-process defaults applied to every request issued
// through a factory-built client, unless overridden per call.
type Config struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// BackoffBase is the delay before the second attempt; subsequent
	// delays grow by BackoffFactor.
	BackoffBase   time.Duration
	BackoffFactor float64

	// BreakerThreshold consecutive failures open a provider's breaker;
	// zero disables the breaker.
	BreakerThreshold int

	// BreakerReset is the cooldown before a half-open trial.
	BreakerReset time.Duration

	// RateLimitInterval is the minimum spacing between dispatches sharing
	// a rate-limit key; zero disables pacing.
	RateLimitInterval time.Duration
}

// DefaultConfig returns the defaults used when the environment is silent.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        3,
		BackoffBase:       250 * time.Millisecond,
		BackoffFactor:     2.0,
		BreakerThreshold:  5,
		BreakerReset:      60 * time.Second,
		RateLimitInterval: 0,
	}
}

// LoadConfig reads the JOBBOT_HTTP_* environment once and validates it.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	var err error
	if cfg.MaxRetries, err = getEnvInt(EnvMaxRetries, cfg.MaxRetries); err != nil {
		return Config{}, err
	}
	if cfg.BackoffBase, err = getEnvMillis(EnvBackoffMs, cfg.BackoffBase); err != nil {
		return Config{}, err
	}
	if cfg.BackoffFactor, err = getEnvFloat(EnvBackoffFactor, cfg.BackoffFactor); err != nil {
		return Config{}, err
	}
	if cfg.BreakerThreshold, err = getEnvInt(EnvBreakerThreshold, cfg.BreakerThreshold); err != nil {
		return Config{}, err
	}
	if cfg.BreakerReset, err = getEnvMillis(EnvBreakerResetMs, cfg.BreakerReset); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitInterval, err = getEnvMillis(EnvRateLimitMs, cfg.RateLimitInterval); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks configuration correctness.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("%s must be non-negative", EnvMaxRetries)
	}
	if c.BackoffBase < 0 {
		return fmt.Errorf("%s must be non-negative", EnvBackoffMs)
	}
	if c.BackoffFactor <= 0 {
		return fmt.Errorf("%s must be positive", EnvBackoffFactor)
	}
	if c.BreakerThreshold < 0 {
		return fmt.Errorf("%s must be non-negative", EnvBreakerThreshold)
	}
	if c.BreakerThreshold > 0 && c.BreakerReset <= 0 {
		return fmt.Errorf("%s must be positive when the breaker is enabled", EnvBreakerResetMs)
	}
	if c.RateLimitInterval < 0 {
		return fmt.Errorf("%s must be non-negative", EnvRateLimitMs)
	}
	return nil
}

// Options expands the config into client options, so callers can append
// their own overrides after the environment-sourced defaults.
func (c Config) Options() []Option {
	return []Option{
		WithMaxRetries(c.MaxRetries),
		WithBackoff(c.BackoffBase, c.BackoffFactor),
		WithCircuitBreaker(c.BreakerThreshold, c.BreakerReset),
		WithRateLimitInterval(c.RateLimitInterval),
	}
}

// NewFromEnv builds a pre-configured client for an ingestion adapter:
// environment-sourced defaults first, then the caller's options on top.
func NewFromEnv(opts ...Option) (*Client, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	client := New(append(cfg.Options(), opts...)...)
	if err := client.ValidationError(); err != nil {
		return nil, err
	}
	return client, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, raw)
	}
	return v, nil
}

func getEnvMillis(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	ms, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid milliseconds %q", key, raw)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
