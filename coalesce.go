package fetchguard

import (
	"context"
	"sync"
)

// flightGroup coalesces concurrent identical fetches: the first caller for a
// URL owns the transport round trip, later callers block until it completes
// and replay the buffered snapshot. Errors are shared; each waiter gets an
// independently readable response body.
type flightGroup struct {
	mu    sync.Mutex
	calls map[string]*flightCall
}

type flightCall struct {
	done  chan struct{}
	entry *CacheEntry
	err   error
}

func newFlightGroup() *flightGroup {
	return &flightGroup{calls: make(map[string]*flightCall)}
}

// join returns the in-flight call for key, creating it when absent. The
// second return value reports whether the caller is the owner and must
// eventually call complete.
func (g *flightGroup) join(key string) (*flightCall, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if call, exists := g.calls[key]; exists {
		return call, false
	}
	call := &flightCall{done: make(chan struct{})}
	g.calls[key] = call
	return call, true
}

// complete publishes the owner's result and releases all waiters. The key is
// removed immediately: a fetch starting after completion is a new flight,
// not a stale replay.
func (g *flightGroup) complete(key string, entry *CacheEntry, err error) {
	g.mu.Lock()
	call, exists := g.calls[key]
	delete(g.calls, key)
	g.mu.Unlock()

	if !exists {
		return
	}
	call.entry = entry
	call.err = err
	close(call.done)
}

// wait blocks until the owning fetch completes or ctx is cancelled.
func (call *flightCall) wait(ctx context.Context) (*CacheEntry, error) {
	select {
	case <-call.done:
		return call.entry, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
