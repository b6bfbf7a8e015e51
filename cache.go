package fetchguard

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"
)

// CacheEntry is a buffered response snapshot. Job boards are polled
// repeatedly, so successful listing pages can be replayed for a short TTL
// instead of refetched. The same snapshot shape backs in-flight coalescing,
// where several waiters each need an independently readable body.
type CacheEntry struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	ExpiresAt  time.Time
}

// Response materializes a fresh *http.Response from the snapshot. Each call
// returns an independent body reader.
func (e *CacheEntry) Response() *http.Response {
	return &http.Response{
		Status:     http.StatusText(e.StatusCode),
		StatusCode: e.StatusCode,
		Header:     e.Header.Clone(),
		Body:       io.NopCloser(bytes.NewReader(e.Body)),
	}
}

// bufferResponse drains resp.Body into a CacheEntry and restores the body so
// the original caller can still read it.
func bufferResponse(resp *http.Response) (*CacheEntry, error) {
	body, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return &CacheEntry{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// Cache stores response snapshots by request URL.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry, ttl time.Duration)
	Delete(key string)
	Clear()
}

// InMemoryCache is a mutex-guarded map cache with lazy expiry. Expiry is
// measured through the supplied Clock so cached responses age alongside
// breaker cooldowns in tests.
type InMemoryCache struct {
	mu    sync.Mutex
	store map[string]*CacheEntry
	clock Clock
}

// NewInMemoryCache returns a cache on the system clock.
func NewInMemoryCache() *InMemoryCache {
	return NewInMemoryCacheWithClock(SystemClock())
}

// NewInMemoryCacheWithClock returns a cache measuring TTLs via clock.
func NewInMemoryCacheWithClock(clock Clock) *InMemoryCache {
	return &InMemoryCache{
		store: make(map[string]*CacheEntry),
		clock: clock,
	}
}

// Get returns the entry for key, evicting it first if expired.
func (c *InMemoryCache) Get(key string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.store[key]
	if !exists {
		return nil, false
	}
	if c.clock.Now().After(entry.ExpiresAt) {
		delete(c.store, key)
		return nil, false
	}
	return entry, true
}

// Set stores an entry with the given TTL.
func (c *InMemoryCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.ExpiresAt = c.clock.Now().Add(ttl)
	c.store[key] = entry
}

// Delete removes an entry.
func (c *InMemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

// Clear removes all entries.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*CacheEntry)
}

// Len reports the number of live entries, counting expired ones until the
// next Get evicts them.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}
