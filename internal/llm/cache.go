package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// cacheKey computes a deterministic key from the prompt and options.
// Identical (prompt, options) pairs always map to the same key.
func cacheKey(prompt string, opts GenerateOptions) string {
	h := sha256.New()
	h.Write([]byte(prompt))
	fmt.Fprintf(h, "\x00%.4f\x00%d", opts.Temperature, opts.MaxTokens)
	return hex.EncodeToString(h.Sum(nil))
}

type cacheEntry struct {
	response     *Response
	expiresAt    time.Time
	lastAccessed time.Time
}

// responseCache is a thread-safe in-memory response cache with TTL and LRU
// eviction.
type responseCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
}

func newResponseCache(ttl time.Duration, maxEntries int) *responseCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	return &responseCache{
		entries:    make(map[string]*cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// get returns a clone of the cached response with Cached set, or nil.
// Expired entries are removed on access.
func (c *responseCache) get(key string) *Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil
	}
	entry.lastAccessed = time.Now()

	resp := entry.response.clone()
	resp.Cached = true
	return resp
}

func (c *responseCache) set(key string, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	now := time.Now()
	c.entries[key] = &cacheEntry{
		response:     resp.clone(),
		expiresAt:    now.Add(c.ttl),
		lastAccessed: now,
	}
}

func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLRU removes the least recently used entry. Caller must hold the lock.
func (c *responseCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	first := true
	for key, entry := range c.entries {
		if first || entry.lastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessed
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
