package fetchguard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// Shared test doubles: a manually advanced clock, a sleeper that records
// every delay and advances the clock instead of waiting, and a scripted
// transport that records dispatch instants.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSleeper struct {
	mu    sync.Mutex
	clock *fakeClock
	slept []time.Duration
}

func newRecordingSleeper(clock *fakeClock) *recordingSleeper {
	return &recordingSleeper{clock: clock}
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
	s.clock.Advance(d)
	return nil
}

func (s *recordingSleeper) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

var errTransport = errors.New("connection reset by peer")

func ctxBackground() context.Context {
	return context.Background()
}

func errAsCircuitOpen(err error) (*CircuitOpenError, bool) {
	var coe *CircuitOpenError
	ok := errors.As(err, &coe)
	return coe, ok
}

func stringBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: stringBody("ok")}
}

func statusResponse(code int) *http.Response {
	return &http.Response{StatusCode: code, Header: http.Header{}, Body: stringBody("")}
}

type transportStep func() (*http.Response, error)

func okStep() transportStep {
	return func() (*http.Response, error) { return okResponse(), nil }
}

func statusStep(code int) transportStep {
	return func() (*http.Response, error) { return statusResponse(code), nil }
}

func failStep(err error) transportStep {
	return func() (*http.Response, error) { return nil, err }
}

// scriptedTransport plays steps in order, repeating the last step once the
// script runs out, and records each dispatch instant on the fake clock.
type scriptedTransport struct {
	mu    sync.Mutex
	clock *fakeClock
	steps []transportStep
	calls int
	times []time.Time
}

func newScriptedTransport(clock *fakeClock, steps ...transportStep) *scriptedTransport {
	return &scriptedTransport{clock: clock, steps: steps}
}

func (tr *scriptedTransport) fetch(ctx context.Context, url string) (*http.Response, error) {
	tr.mu.Lock()
	i := tr.calls
	tr.calls++
	if tr.clock != nil {
		tr.times = append(tr.times, tr.clock.Now())
	}
	if i >= len(tr.steps) {
		i = len(tr.steps) - 1
	}
	step := tr.steps[i]
	tr.mu.Unlock()
	return step()
}

func (tr *scriptedTransport) callCount() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.calls
}

func (tr *scriptedTransport) dispatchTimes() []time.Time {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]time.Time(nil), tr.times...)
}

// newTestClient wires a client to the fake clock and recording sleeper.
// Additional options are applied after the injection options.
func newTestClient(tr *scriptedTransport, opts ...Option) (*Client, *fakeClock, *recordingSleeper) {
	clock := tr.clock
	sleeper := newRecordingSleeper(clock)
	base := []Option{
		WithClock(clock),
		WithSleeper(sleeper.Sleep),
		WithTransport(tr.fetch),
	}
	return New(append(base, opts...)...), clock, sleeper
}

func TestNewDefaults(t *testing.T) {
	client := New()

	if !client.IsValid() {
		t.Fatalf("New() with defaults is invalid: %v", client.ValidationError())
	}
	if client.retry.Retries != 0 {
		t.Errorf("Expected retries disabled by default, got %d", client.retry.Retries)
	}
	if client.breaker.Threshold != 0 {
		t.Errorf("Expected breaker disabled by default, got threshold %d", client.breaker.Threshold)
	}
	if client.interval != 0 {
		t.Errorf("Expected pacing disabled by default, got %v", client.interval)
	}
	if client.transport == nil {
		t.Error("Expected a default transport")
	}
	if client.registry == nil {
		t.Error("Expected a registry")
	}
}

func TestNewInvalidConfiguration(t *testing.T) {
	client := New(WithMaxRetries(-1))

	if client.IsValid() {
		t.Fatal("Expected invalid client for negative retries")
	}

	_, err := client.Fetch(context.Background(), "https://boards.example.com/jobs")
	if err == nil {
		t.Fatal("Expected Fetch to surface the validation error")
	}
	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Type != ErrorTypeValidation {
		t.Errorf("Expected validation ClientError, got %v", err)
	}
}

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	if !strings.Contains(v, Version) {
		t.Errorf("GetVersion() = %q, expected it to contain %q", v, Version)
	}

	info := GetVersionInfo()
	if info["version"] != Version {
		t.Errorf("Expected version %q in info map, got %q", Version, info["version"])
	}
}
