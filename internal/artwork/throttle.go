package artwork

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// SearchCache holds recent search results keyed by provider, game, query,
// and result cap. Entries expire after TTL; when the cache exceeds MaxSize
// the oldest entry is evicted. The clock is injected so tests can advance
// time without sleeping.
type SearchCache struct {
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	at         time.Time
	candidates []Candidate
}

// NewSearchCache builds a cache with the given TTL and capacity. A nil now
// falls back to the wall clock.
func NewSearchCache(ttl time.Duration, maxSize int, now func() time.Time) *SearchCache {
	if now == nil {
		now = time.Now
	}
	return &SearchCache{
		ttl:     ttl,
		maxSize: maxSize,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Key derives the cache key for a search.
func Key(provider, gameID, query string, maxResults int) string {
	return fmt.Sprintf("%s|%s|%s|%d", provider, gameID, strings.ToLower(query), maxResults)
}

// Get returns the cached candidates for key, or false when absent or
// expired. Expired entries are dropped on read.
func (c *SearchCache) Get(key string) ([]Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.at) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.candidates, true
}

// Put stores candidates under key, evicting the oldest entry when over
// capacity.
func (c *SearchCache) Put(key string, candidates []Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{at: c.now(), candidates: candidates}
	if len(c.entries) <= c.maxSize {
		return
	}
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.at.Before(oldestAt) {
			oldestKey, oldestAt = k, e.at
			first = false
		}
	}
	delete(c.entries, oldestKey)
}

// RateLimiter enforces two bounds per client: a minimum spacing between
// consecutive requests and a per-minute request cap on a fixed window.
type RateLimiter struct {
	perMinute   int
	minInterval time.Duration
	now         func() time.Time

	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	windowStart time.Time
	count       int
	last        time.Time
}

// NewRateLimiter builds a limiter. A nil now falls back to the wall clock.
func NewRateLimiter(perMinute int, minInterval time.Duration, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		perMinute:   perMinute,
		minInterval: minInterval,
		now:         now,
		clients:     make(map[string]*clientWindow),
	}
}

// Allow reports whether clientID may search right now. When denied it
// returns a short reason and the whole seconds to wait before retrying.
func (l *RateLimiter) Allow(clientID string) (bool, string, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	window, ok := l.clients[clientID]
	if !ok {
		window = &clientWindow{windowStart: now}
		l.clients[clientID] = window
	}

	if now.Sub(window.windowStart) >= time.Minute {
		window.windowStart = now
		window.count = 0
	}

	if !window.last.IsZero() {
		if since := now.Sub(window.last); since < l.minInterval {
			retry := int(math.Ceil((l.minInterval - since).Seconds()))
			if retry < 1 {
				retry = 1
			}
			return false, "too many requests; please slow down", retry
		}
	}

	if window.count >= l.perMinute {
		retry := int(math.Ceil((time.Minute - now.Sub(window.windowStart)).Seconds()))
		if retry < 1 {
			retry = 1
		}
		return false, "rate limit reached for art search", retry
	}

	window.count++
	window.last = now
	return true, "", 0
}
