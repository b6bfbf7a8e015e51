package fetchguard

import "time"

// breakerState tracks consecutive failures for one provider key.
// Invariant: open implies openedAt is set. The failure count resets to zero
// on any successful outcome and the breaker opens exactly when a fresh
// failure brings the count to the configured threshold.
type breakerState struct {
	failures int
	open     bool
	openedAt time.Time
}

// CheckBreaker decides whether a request for key may proceed at instant now.
// A missing or closed state allows the request. An open state denies it
// until spec.Reset has elapsed since the breaker opened, reporting when the
// cooldown ends; once the window has elapsed the request is allowed as the
// single half-open trial and counts toward the next outcome like any other
// attempt.
func (r *Registry) CheckBreaker(key string, spec BreakerSpec, now time.Time) BreakerDecision {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.breakers[key]
	if !ok || !st.open {
		return BreakerDecision{Allowed: true}
	}
	if now.Sub(st.openedAt) < spec.Reset {
		return BreakerDecision{Allowed: false, RetryAt: st.openedAt.Add(spec.Reset)}
	}
	return BreakerDecision{Allowed: true}
}

// RecordFailure counts a failed attempt against key. Both transport errors
// and non-2xx responses land here. When the count reaches spec.Threshold the
// breaker opens at now; a failed half-open trial re-opens with the full
// cooldown restarting. A zero threshold disables opening entirely.
func (r *Registry) RecordFailure(key string, spec BreakerSpec, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.breakers[key]
	if !ok {
		st = &breakerState{}
		r.breakers[key] = st
	}
	st.failures++
	if spec.Threshold > 0 && st.failures >= spec.Threshold {
		st.open = true
		st.openedAt = now
	}
}

// RecordSuccess resets key to a fully closed breaker with zero failures.
func (r *Registry) RecordSuccess(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.breakers[key]
	if !ok {
		return
	}
	st.failures = 0
	st.open = false
	st.openedAt = time.Time{}
}
