package llm

import (
	"sync"
	"time"
)

// cacheEntry represents a cached classification suggestion.
type cacheEntry struct {
	expiry     time.Time
	suggestion Suggestion
}

// inflightCall tracks a backend request in progress so that concurrent
// lookups for the same fingerprint share one API call.
type inflightCall struct {
	done       chan struct{}
	err        error
	suggestion Suggestion
}

// suggestionCache provides thread-safe caching for LLM suggestions keyed by
// transaction fingerprint.
type suggestionCache struct {
	entries  map[string]cacheEntry
	inflight map[string]*inflightCall
	stopCh   chan struct{}
	ttl      time.Duration
	mu       sync.Mutex
}

// newSuggestionCache creates a new cache with the specified TTL.
func newSuggestionCache(ttl time.Duration) *suggestionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &suggestionCache{
		entries:  make(map[string]cacheEntry),
		inflight: make(map[string]*inflightCall),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// get retrieves a suggestion from the cache if it exists and hasn't expired.
func (c *suggestionCache) get(key string) (Suggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiry) {
		return Suggestion{}, false
	}

	return entry.suggestion, true
}

// do runs fn for key, collapsing concurrent callers onto a single backend
// call. The first caller for a key executes fn; everyone else blocks until
// it completes and shares the result. Errors are not cached.
func (c *suggestionCache) do(key string, fn func() (Suggestion, error)) (Suggestion, error) {
	c.mu.Lock()

	if entry, exists := c.entries[key]; exists && time.Now().Before(entry.expiry) {
		c.mu.Unlock()
		return entry.suggestion, nil
	}

	if call, exists := c.inflight[key]; exists {
		c.mu.Unlock()
		<-call.done
		return call.suggestion, call.err
	}

	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	call.suggestion, call.err = fn()

	c.mu.Lock()
	delete(c.inflight, key)
	if call.err == nil {
		c.entries[key] = cacheEntry{
			suggestion: call.suggestion,
			expiry:     time.Now().Add(c.ttl),
		}
	}
	c.mu.Unlock()

	close(call.done)
	return call.suggestion, call.err
}

// cleanup periodically removes expired entries.
func (c *suggestionCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *suggestionCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *suggestionCache) Close() {
	close(c.stopCh)
}
