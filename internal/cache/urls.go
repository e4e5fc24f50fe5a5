package cache

import (
	"sync"
	"time"
)

// DefaultURLTTL is how long a resolved stream URL stays reusable. Upstream
// CDN links carry signed expiry parameters that outlive this window.
const DefaultURLTTL = 5 * time.Hour

type urlEntry struct {
	url     string
	expires time.Time
}

// URLCache remembers resolved stream URLs per track so repeated plays and
// retries skip the resolver round trip.
type URLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]urlEntry
}

func NewURLCache(ttl time.Duration) *URLCache {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &URLCache{ttl: ttl, entries: make(map[string]urlEntry)}
}

func (c *URLCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return "", false
	}
	return e.url, true
}

func (c *URLCache) Put(key, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = urlEntry{url: url, expires: time.Now().Add(c.ttl)}
}

func (c *URLCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge drops expired entries and reports how many remain.
func (c *URLCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	return len(c.entries)
}
