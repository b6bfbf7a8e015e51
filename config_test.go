package fetchguard

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		EnvMaxRetries, EnvBackoffMs, EnvBackoffFactor,
		EnvBreakerThreshold, EnvBreakerResetMs, EnvRateLimitMs,
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := DefaultConfig()
	if cfg != want {
		t.Errorf("LoadConfig() = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv(EnvMaxRetries, "5")
	t.Setenv(EnvBackoffMs, "100")
	t.Setenv(EnvBackoffFactor, "1.5")
	t.Setenv(EnvBreakerThreshold, "2")
	t.Setenv(EnvBreakerResetMs, "30000")
	t.Setenv(EnvRateLimitMs, "1000")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.BackoffBase != 100*time.Millisecond {
		t.Errorf("BackoffBase = %v, want 100ms", cfg.BackoffBase)
	}
	if cfg.BackoffFactor != 1.5 {
		t.Errorf("BackoffFactor = %v, want 1.5", cfg.BackoffFactor)
	}
	if cfg.BreakerThreshold != 2 {
		t.Errorf("BreakerThreshold = %d, want 2", cfg.BreakerThreshold)
	}
	if cfg.BreakerReset != 30*time.Second {
		t.Errorf("BreakerReset = %v, want 30s", cfg.BreakerReset)
	}
	if cfg.RateLimitInterval != time.Second {
		t.Errorf("RateLimitInterval = %v, want 1s", cfg.RateLimitInterval)
	}
}

func TestLoadConfigRejectsMalformedValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric retries", EnvMaxRetries, "many"},
		{"non-numeric backoff", EnvBackoffMs, "250ms"},
		{"non-numeric factor", EnvBackoffFactor, "double"},
		{"non-numeric threshold", EnvBreakerThreshold, "five"},
		{"non-numeric reset", EnvBreakerResetMs, "1m"},
		{"non-numeric rate limit", EnvRateLimitMs, "fast"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := LoadConfig()
			if err == nil {
				t.Fatalf("Expected error for %s=%q", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.key) {
				t.Errorf("Expected error to name %s, got %v", tc.key, err)
			}
		})
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv(EnvMaxRetries, "-1")

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected validation error for negative retries")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
		{"negative backoff", func(c *Config) { c.BackoffBase = -time.Second }, true},
		{"zero factor", func(c *Config) { c.BackoffFactor = 0 }, true},
		{"negative threshold", func(c *Config) { c.BreakerThreshold = -1 }, true},
		{"enabled breaker without reset", func(c *Config) {
			c.BreakerThreshold = 3
			c.BreakerReset = 0
		}, true},
		{"disabled breaker without reset", func(c *Config) {
			c.BreakerThreshold = 0
			c.BreakerReset = 0
		}, false},
		{"negative rate limit", func(c *Config) { c.RateLimitInterval = -time.Second }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestNewFromEnvAppliesConfig(t *testing.T) {
	t.Setenv(EnvMaxRetries, "7")
	t.Setenv(EnvRateLimitMs, "500")

	client, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
	if client.retry.Retries != 7 {
		t.Errorf("Expected 7 retries from environment, got %d", client.retry.Retries)
	}
	if client.interval != 500*time.Millisecond {
		t.Errorf("Expected 500ms pacing from environment, got %v", client.interval)
	}
	if client.breaker.Threshold != DefaultConfig().BreakerThreshold {
		t.Errorf("Expected default breaker threshold, got %d", client.breaker.Threshold)
	}
}

func TestNewFromEnvCallerOptionsWin(t *testing.T) {
	t.Setenv(EnvMaxRetries, "7")

	client, err := NewFromEnv(WithMaxRetries(1))
	if err != nil {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
	if client.retry.Retries != 1 {
		t.Errorf("Expected caller option to override environment, got %d retries", client.retry.Retries)
	}
}

func TestNewFromEnvPropagatesErrors(t *testing.T) {
	t.Setenv(EnvBackoffMs, "soon")

	if _, err := NewFromEnv(); err == nil {
		t.Error("Expected NewFromEnv to surface the parse error")
	}
}
