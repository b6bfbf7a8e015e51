// Package fetchguard is the resilient HTTP request core used by job-posting
// ingestion adapters. Every adapter fetch goes through a single entry point
// that layers, per provider key:
//
//   - Retries with exponential backoff
//   - Circuit breaking (closed / open, single half-open trial)
//   - Rate limiting (minimum interval pacing between dispatches)
//   - Optional short-TTL response caching and in-flight coalescing
//   - Prometheus metrics and lightweight structured debug logging
//
// Breaker and limiter state live in an explicit Registry keyed by provider,
// so multiple endpoints belonging to one board share a single bucket: once a
// provider starts failing, every request against it backs off together.
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Deterministic tests – clock and sleep are injectable
//   - Safe concurrent use of a single *Client instance
//   - Transport is a plain injected function; pooling, TLS and timeouts stay
//     with the underlying *http.Client supplied by the caller
//
// Typical usage:
//
//	client, err := fetchguard.NewFromEnv(
//	    fetchguard.WithRateLimitInterval(time.Second),
//	)
//	resp, err := client.Fetch(ctx, "https://boards.example.com/jobs",
//	    fetchguard.CallRateLimitKey("example-board"),
//	)
//
// A response with a non-2xx status is retried and counted against the breaker
// exactly like a transport error, but once retries are exhausted it is
// returned as-is with a nil error: interpreting status codes stays with the
// adapter.
package fetchguard
