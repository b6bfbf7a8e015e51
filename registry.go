package fetchguard

import "sync"

// Registry owns the breaker and limiter state for every provider key seen by
// a client. It is constructed once per client (or shared across clients via
// WithRegistry) and mutated only by the request orchestrator; there is no
// process-wide state.
//
// Each operation takes the current instant from the caller so that the
// injected per-call clock governs every time comparison.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*breakerState
	limiters map[string]*limiterState
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		breakers: make(map[string]*breakerState),
		limiters: make(map[string]*limiterState),
	}
}

// Reset drops all breaker and limiter state. Existing keys start over as if
// never seen.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = make(map[string]*breakerState)
	r.limiters = make(map[string]*limiterState)
}

// BreakerSnapshot reports the failure count and open flag for a key.
// A key with no recorded state reads as closed with zero failures.
func (r *Registry) BreakerSnapshot(key string) (failures int, open bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.breakers[key]
	if !ok {
		return 0, false
	}
	return st.failures, st.open
}

// Keys returns the number of distinct breaker and limiter buckets.
func (r *Registry) Keys() (breakers, limiters int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.breakers), len(r.limiters)
}
