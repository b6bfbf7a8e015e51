package fetchguard

import (
	"context"
	"net/http"
	"time"

	internalbackoff "github.com/futuroptimist/jobbot3000-sub000/internal/backoff"
)

// Client is the shared request orchestrator. Every ingestion adapter calls
// through one Client, whose Registry keys breaker and limiter state by
// provider so concurrent fetches against a failing board collectively drive
// its breaker open. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	transport  Transport
	retry      RetrySpec
	breaker    BreakerSpec
	interval   time.Duration
	registry   *Registry
	clock      Clock
	sleep      Sleeper
	cache      Cache
	cacheTTL   time.Duration
	flights    *flightGroup
	metrics    *MetricsCollector
	logger     Logger
	debug      *DebugConfig

	validationError error
}

// New constructs a Client using the provided functional options. Retries and
// the circuit breaker are disabled until configured. A best effort validation
// is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      RetrySpec{Retries: 0, Delay: 250 * time.Millisecond, Factor: 2.0},
		breaker:    BreakerSpec{},
		interval:   0,
		registry:   NewRegistry(),
		clock:      SystemClock(),
		sleep:      SystemSleeper(),
		cacheTTL:   5 * time.Minute,
		debug:      DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}
	if client.transport == nil {
		client.transport = defaultTransport(client.httpClient)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Registry exposes the client's breaker/limiter registry, mainly so tests
// and long-lived processes can Reset it or inspect breaker snapshots.
func (c *Client) Registry() *Registry {
	return c.registry
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Fetch performs a resilient GET against url. Per-call options override the
// client defaults; the rate-limit key defaults to the URL itself, so pass
// CallRateLimitKey to make distinct endpoints of one provider share a
// breaker/limiter bucket.
//
// A transport error after retry exhaustion is returned unchanged. A non-2xx
// response after exhaustion is returned as-is with a nil error. An open
// breaker returns *CircuitOpenError without touching the transport.
func (c *Client) Fetch(ctx context.Context, url string, opts ...CallOption) (*http.Response, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}

	cc := callConfig{
		transport: c.transport,
		retry:     c.retry,
		breaker:   c.breaker,
		interval:  c.interval,
		clock:     c.clock,
		sleep:     c.sleep,
	}
	for _, opt := range opts {
		opt(&cc)
	}
	if cc.key == "" {
		cc.key = url
	}

	var requestID string
	if c.debugEnabled() {
		requestID = c.debug.RequestIDGen()
		if c.debug.LogRequests {
			c.logger.Debug("starting request", "requestID", requestID, "url", url, "key", cc.key)
		}
	}

	start := cc.clock.Now()
	c.metrics.RecordRequestStart(cc.key)
	defer c.metrics.RecordRequestEnd(cc.key)

	if c.cache != nil {
		if entry, found := c.cache.Get(url); found {
			c.metrics.RecordCacheHit(cc.key)
			c.metrics.RecordRequest(cc.key, entry.StatusCode, cc.clock.Now().Sub(start))
			if c.debugEnabled() && c.debug.LogCache {
				c.logger.Debug("cache hit", "requestID", requestID, "url", url)
			}
			return entry.Response(), nil
		}
		c.metrics.RecordCacheMiss(cc.key)
	}

	resp, err := c.execute(ctx, url, cc, requestID)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	c.metrics.RecordRequest(cc.key, statusCode, cc.clock.Now().Sub(start))

	if c.cache != nil && err == nil && resp != nil && statusCode >= 200 && statusCode < 300 {
		if entry, bufErr := bufferResponse(resp); bufErr == nil {
			c.cache.Set(url, entry, c.cacheTTL)
			if c.debugEnabled() && c.debug.LogCache {
				c.logger.Debug("response cached", "requestID", requestID, "url", url, "ttl", c.cacheTTL)
			}
		}
	}

	return resp, err
}

// execute wraps the attempt loop with in-flight coalescing when enabled.
// The first caller for a URL owns the round trip; later callers wait and
// replay the buffered result.
func (c *Client) execute(ctx context.Context, url string, cc callConfig, requestID string) (*http.Response, error) {
	if c.flights == nil {
		return c.doWithRetry(ctx, url, cc, requestID)
	}

	call, owner := c.flights.join(url)
	if !owner {
		c.metrics.RecordCoalescedHit(cc.key)
		if c.debugEnabled() && c.debug.LogRequests {
			c.logger.Debug("joined in-flight request", "requestID", requestID, "url", url)
		}
		entry, err := call.wait(ctx)
		if err != nil {
			return nil, err
		}
		return entry.Response(), nil
	}

	resp, err := c.doWithRetry(ctx, url, cc, requestID)
	if err != nil {
		c.flights.complete(url, nil, err)
		return nil, err
	}
	entry, bufErr := bufferResponse(resp)
	if bufErr != nil {
		c.flights.complete(url, nil, bufErr)
		return nil, bufErr
	}
	c.flights.complete(url, entry, nil)
	return resp, nil
}

// doWithRetry runs the attempt loop: pacing, breaker gate, transport,
// outcome recording, backoff. The limiter and breaker are re-consulted on
// every attempt because a failure in this very loop may have opened the
// breaker.
func (c *Client) doWithRetry(ctx context.Context, url string, cc callConfig, requestID string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if wait := c.registry.Reserve(cc.key, cc.interval, cc.clock.Now()); wait > 0 {
			c.metrics.RecordRateLimitWait(cc.key, wait)
			if c.debugEnabled() && c.debug.LogRateLimit {
				c.logger.Debug("pacing dispatch", "requestID", requestID, "key", cc.key, "wait", wait)
			}
			if err := cc.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		decision := c.registry.CheckBreaker(cc.key, cc.breaker, cc.clock.Now())
		if !decision.Allowed {
			c.metrics.RecordCircuitRejection(cc.key)
			c.metrics.RecordError("CircuitOpen", cc.key)
			if c.debugEnabled() && c.debug.LogCircuit {
				c.logger.Warn("circuit open, fast-failing",
					"requestID", requestID, "key", cc.key, "retryAt", decision.RetryAt)
			}
			return nil, &CircuitOpenError{CircuitKey: cc.key, RetryAt: decision.RetryAt}
		}

		if attempt > 0 {
			c.metrics.RecordRetry(cc.key, attempt)
			if c.debugEnabled() && c.debug.LogRetries {
				c.logger.Info("retry attempt",
					"requestID", requestID, "attempt", attempt, "maxRetries", cc.retry.Retries, "key", cc.key)
			}
		}

		resp, err := cc.transport(ctx, url)
		out := classify(resp, err)

		if !out.failed() {
			c.registry.RecordSuccess(cc.key)
			c.metrics.RecordBreakerOpen(cc.key, false)
			return out.resp, nil
		}

		c.registry.RecordFailure(cc.key, cc.breaker, cc.clock.Now())
		_, open := c.registry.BreakerSnapshot(cc.key)
		c.metrics.RecordBreakerOpen(cc.key, open)

		switch out.kind {
		case outcomeTransportFailure:
			c.metrics.RecordError("Transport", cc.key)
			if c.debugEnabled() && c.debug.LogCircuit {
				c.logger.Warn("attempt failed", "requestID", requestID, "key", cc.key, "error", out.err.Error())
			}
		case outcomeStatusFailure:
			c.metrics.RecordError("Status", cc.key)
			if c.debugEnabled() && c.debug.LogCircuit {
				c.logger.Warn("attempt failed", "requestID", requestID, "key", cc.key, "statusCode", out.resp.StatusCode)
			}
		}

		if attempt < cc.retry.Retries {
			delay := internalbackoff.Delay(attempt, cc.retry.Delay, cc.retry.Factor)
			if err := cc.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		// Exhausted. Transport errors propagate unchanged; a non-2xx
		// response is handed back as-is so the adapter interprets the
		// status itself.
		if out.kind == outcomeTransportFailure {
			return nil, out.err
		}
		return out.resp, nil
	}
}

// Get is an alias for Fetch, kept for callers that read better with the
// HTTP verb spelled out.
func (c *Client) Get(ctx context.Context, url string, opts ...CallOption) (*http.Response, error) {
	return c.Fetch(ctx, url, opts...)
}

func (c *Client) debugEnabled() bool {
	return c.debug != nil && c.debug.Enabled && c.logger != nil
}

// defaultTransport issues a plain GET through the client's *http.Client.
func defaultTransport(client *http.Client) Transport {
	return func(ctx context.Context, url string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "jobbot3000-fetchguard/"+Version)
		return client.Do(req)
	}
}
