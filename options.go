package fetchguard

import (
	"fmt"
	"net/http"
	"time"
)

// WithTransport sets the request primitive. When unset, a plain GET through
// the client's *http.Client is used.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithHTTPClient sets the *http.Client backing the default transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithMaxRetries sets the number of additional attempts after the first.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.retry.Retries = n
	}
}

// WithBackoff sets the base delay and growth factor for retry backoff.
func WithBackoff(base time.Duration, factor float64) Option {
	return func(c *Client) {
		c.retry.Delay = base
		c.retry.Factor = factor
	}
}

// WithRetry replaces the whole retry spec.
func WithRetry(spec RetrySpec) Option {
	return func(c *Client) {
		c.retry = spec
	}
}

// WithCircuitBreaker enables the breaker: threshold consecutive failures
// open it, reset is the cooldown before a half-open trial.
func WithCircuitBreaker(threshold int, reset time.Duration) Option {
	return func(c *Client) {
		c.breaker = BreakerSpec{Threshold: threshold, Reset: reset}
	}
}

// WithRateLimitInterval enforces a minimum interval between dispatches
// sharing a rate-limit key.
func WithRateLimitInterval(d time.Duration) Option {
	return func(c *Client) {
		c.interval = d
	}
}

// WithRegistry shares a breaker/limiter registry across clients, so several
// per-provider clients in one process honor one set of buckets.
func WithRegistry(r *Registry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

// WithClock sets the time source.
func WithClock(clock Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithSleeper sets the delay primitive.
func WithSleeper(sleep Sleeper) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithCache enables response caching with the default in-memory cache.
func WithCache(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = NewInMemoryCacheWithClock(c.clock)
		c.cacheTTL = ttl
	}
}

// WithCustomCache sets a custom cache implementation.
func WithCustomCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithCoalescing merges concurrent fetches of the same URL into a single
// transport round trip.
func WithCoalescing() Option {
	return func(c *Client) {
		c.flights = newFlightGroup()
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables debug logging with the default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets a custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// CallTransport overrides the transport for one call.
func CallTransport(t Transport) CallOption {
	return func(cc *callConfig) {
		cc.transport = t
	}
}

// CallRetry overrides the retry spec for one call.
func CallRetry(spec RetrySpec) CallOption {
	return func(cc *callConfig) {
		cc.retry = spec
	}
}

// CallCircuitBreaker overrides the breaker spec for one call.
func CallCircuitBreaker(spec BreakerSpec) CallOption {
	return func(cc *callConfig) {
		cc.breaker = spec
	}
}

// CallRateLimitKey shares one breaker/limiter bucket across distinct URLs of
// a provider. Defaults to the request URL.
func CallRateLimitKey(key string) CallOption {
	return func(cc *callConfig) {
		cc.key = key
	}
}

// CallRateLimitInterval overrides the pacing interval for one call.
func CallRateLimitInterval(d time.Duration) CallOption {
	return func(cc *callConfig) {
		cc.interval = d
	}
}

// CallClock overrides the time source for one call.
func CallClock(clock Clock) CallOption {
	return func(cc *callConfig) {
		cc.clock = clock
	}
}

// CallSleeper overrides the delay primitive for one call.
func CallSleeper(sleep Sleeper) CallOption {
	return func(cc *callConfig) {
		cc.sleep = sleep
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateBreakerConfig()...)
	problems = append(problems, c.validateRateLimitConfig()...)
	problems = append(problems, c.validateCacheConfig()...)
	problems = append(problems, c.validateInjectionConfig()...)
	problems = append(problems, c.validateExtremeValues()...)

	if len(problems) > 0 {
		return &ClientError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", problems),
		}
	}
	return nil
}

func (c *Client) validateRetryConfig() []string {
	var problems []string

	if c.retry.Retries < 0 {
		problems = append(problems, "retries must be non-negative")
	}
	if c.retry.Delay < 0 {
		problems = append(problems, "backoff delay must be non-negative")
	}
	if c.retry.Retries > 0 && c.retry.Factor <= 0 {
		problems = append(problems, "backoff factor must be positive when retries are enabled")
	}
	return problems
}

func (c *Client) validateBreakerConfig() []string {
	var problems []string

	if c.breaker.Threshold < 0 {
		problems = append(problems, "breaker threshold must be non-negative")
	}
	if c.breaker.Reset < 0 {
		problems = append(problems, "breaker reset must be non-negative")
	}
	if c.breaker.Threshold > 0 && c.breaker.Reset == 0 {
		problems = append(problems, "breaker reset must be positive when the breaker is enabled")
	}
	return problems
}

func (c *Client) validateRateLimitConfig() []string {
	if c.interval < 0 {
		return []string{"rate limit interval must be non-negative"}
	}
	return nil
}

func (c *Client) validateCacheConfig() []string {
	if c.cache != nil && c.cacheTTL <= 0 {
		return []string{"cache TTL must be positive when the cache is enabled"}
	}
	return nil
}

func (c *Client) validateInjectionConfig() []string {
	var problems []string

	if c.httpClient == nil && c.transport == nil {
		problems = append(problems, "HTTP client cannot be nil without a custom transport")
	}
	if c.clock == nil {
		problems = append(problems, "clock cannot be nil")
	}
	if c.sleep == nil {
		problems = append(problems, "sleeper cannot be nil")
	}
	if c.registry == nil {
		problems = append(problems, "registry cannot be nil")
	}
	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			problems = append(problems, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			problems = append(problems, "logger must be set when debug is enabled")
		}
	}
	return problems
}

func (c *Client) validateExtremeValues() []string {
	var problems []string

	if c.retry.Retries > 100 {
		problems = append(problems, "retries > 100 may cause excessive resource usage")
	}
	if c.retry.Delay > 10*time.Minute {
		problems = append(problems, "backoff delay > 10m may cause very long stalls")
	}
	if c.interval > time.Hour {
		problems = append(problems, "rate limit interval > 1h may cause requests to queue indefinitely")
	}
	if c.cache != nil && c.cacheTTL > 24*time.Hour {
		problems = append(problems, "cache TTL > 24h may cause stale job listings")
	}
	return problems
}
