package fetchguard

import (
	"testing"
	"time"
)

func TestRegistryResetClearsState(t *testing.T) {
	r := NewRegistry()
	clock := newFakeClock()
	spec := BreakerSpec{Threshold: 1, Reset: time.Minute}

	r.RecordFailure("board", spec, clock.Now())
	r.Reserve("board", time.Second, clock.Now())

	r.Reset()

	if failures, open := r.BreakerSnapshot("board"); failures != 0 || open {
		t.Errorf("Expected clean breaker after reset, got failures=%d open=%v", failures, open)
	}
	if wait := r.Reserve("board", time.Second, clock.Now()); wait != 0 {
		t.Errorf("Expected immediate dispatch after reset, got %v", wait)
	}
	if breakers, limiters := r.Keys(); breakers != 0 || limiters != 1 {
		// One limiter bucket from the post-reset Reserve above.
		t.Errorf("Expected 0 breakers and 1 limiter, got %d and %d", breakers, limiters)
	}
}

func TestRegistryKeysCounts(t *testing.T) {
	r := NewRegistry()
	clock := newFakeClock()
	spec := BreakerSpec{Threshold: 5, Reset: time.Minute}

	r.RecordFailure("a", spec, clock.Now())
	r.RecordFailure("b", spec, clock.Now())
	r.Reserve("c", time.Second, clock.Now())

	if breakers, limiters := r.Keys(); breakers != 2 || limiters != 1 {
		t.Errorf("Expected 2 breakers and 1 limiter, got %d and %d", breakers, limiters)
	}
}

func TestRegistrySharedAcrossClients(t *testing.T) {
	shared := NewRegistry()

	trA := newScriptedTransport(newFakeClock(), failStep(errTransport))
	clientA, _, _ := newTestClient(trA,
		WithRegistry(shared),
		WithCircuitBreaker(1, time.Minute),
	)

	if _, err := clientA.Fetch(ctxBackground(), "https://boards.example.com/a"); err == nil {
		t.Fatal("Expected transport failure")
	}

	// Same key through a second client sharing the registry: fast-fail.
	trB := newScriptedTransport(trA.clock, okStep())
	clientB, _, _ := newTestClient(trB,
		WithRegistry(shared),
		WithCircuitBreaker(1, time.Minute),
	)

	_, err := clientB.Fetch(ctxBackground(), "https://boards.example.com/a")
	if _, ok := errAsCircuitOpen(err); !ok {
		t.Fatalf("Expected circuit-open rejection through shared registry, got %v", err)
	}
	if trB.callCount() != 0 {
		t.Errorf("Expected transport untouched, got %d calls", trB.callCount())
	}
}
