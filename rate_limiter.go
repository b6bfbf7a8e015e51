package fetchguard

import "time"

// limiterState tracks the dispatch schedule for one provider key.
// lastDispatch is the instant of the most recently reserved dispatch slot;
// two requests sharing a key are never dispatched less than the configured
// interval apart as measured by the injected clock.
type limiterState struct {
	lastDispatch time.Time
}

// Reserve returns how long a request for key must wait before dispatching at
// instant now, and books the slot at the end of that wait. Booking the slot
// under the lock keeps the pacing invariant intact when several logical
// requests hit the same key at once, and because the slot is the exact
// post-wait instant, back-to-back calls chain precisely instead of
// compounding timing error. A key with no prior state dispatches
// immediately. A non-positive interval disables pacing but still records the
// dispatch so a later paced call has a reference point.
func (r *Registry) Reserve(key string, minInterval time.Duration, now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.limiters[key]
	if !ok {
		st = &limiterState{}
		r.limiters[key] = st
	}

	if st.lastDispatch.IsZero() || minInterval <= 0 {
		st.lastDispatch = now
		return 0
	}

	remaining := minInterval - now.Sub(st.lastDispatch)
	if remaining <= 0 {
		st.lastDispatch = now
		return 0
	}
	st.lastDispatch = now.Add(remaining)
	return remaining
}
