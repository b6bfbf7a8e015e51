package fetchguard

import (
	"context"
	"net/http"
	"time"
)

// Clock is the injectable time source. Breaker cooldowns and pacing intervals
// are always measured through it, so tests can drive time explicitly.
type Clock interface {
	Now() time.Time
}

// Sleeper is the injectable delay primitive. It must return early with the
// context error if ctx is cancelled during the wait.
type Sleeper func(ctx context.Context, d time.Duration) error

// Transport is the injected request primitive. It owns connection handling,
// TLS and timeouts; fetchguard only classifies its outcome.
type Transport func(ctx context.Context, url string) (*http.Response, error)

// RetrySpec configures the retry loop for a call. Retries is the number of
// additional attempts after the first; Delay and Factor feed the exponential
// backoff between them. The zero value disables retries.
type RetrySpec struct {
	Retries int
	Delay   time.Duration
	Factor  float64
}

// BreakerSpec configures the circuit breaker for a call's provider key.
// Threshold is the consecutive-failure count that opens the breaker and
// Reset the cooldown before a half-open trial is allowed. The zero value
// disables the breaker entirely.
type BreakerSpec struct {
	Threshold int
	Reset     time.Duration
}

// BreakerDecision is the result of consulting the breaker for a key.
// When Allowed is false, RetryAt is the instant the cooldown elapses.
type BreakerDecision struct {
	Allowed bool
	RetryAt time.Time
}

// Option configures a Client at construction time.
type Option func(*Client)

// CallOption overrides client defaults for a single Fetch call.
type CallOption func(*callConfig)

// callConfig is the effective per-call configuration after client defaults
// and call options are applied.
type callConfig struct {
	transport Transport
	retry     RetrySpec
	breaker   BreakerSpec
	key       string
	interval  time.Duration
	clock     Clock
	sleep     Sleeper
}

// outcome is the tagged result of one transport attempt. A thrown transport
// error and a resolved non-2xx response are distinct shapes but are consumed
// identically by the breaker and retry logic.
type outcome struct {
	kind outcomeKind
	resp *http.Response
	err  error
}

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeTransportFailure
	outcomeStatusFailure
)

// classify maps a transport result onto an outcome. Success means a nil
// error and a 2xx status.
func classify(resp *http.Response, err error) outcome {
	if err != nil {
		return outcome{kind: outcomeTransportFailure, err: err}
	}
	if resp == nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return outcome{kind: outcomeStatusFailure, resp: resp}
	}
	return outcome{kind: outcomeSuccess, resp: resp}
}

func (o outcome) failed() bool {
	return o.kind != outcomeSuccess
}
