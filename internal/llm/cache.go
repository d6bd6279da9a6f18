package llm

import (
	"sync"
	"time"
)

const (
	defaultCacheTTL = 15 * time.Minute

	// minSweepSize is the smallest map size that triggers an expiry sweep.
	minSweepSize = 64
)

// replyCache memoizes generated replies so repeated deferrals of the same
// message reuse the first reply instead of spending another API call.
// Expired entries are swept opportunistically during writes; the cache runs
// no background goroutine.
type replyCache struct {
	entries   map[string]cachedReply
	ttl       time.Duration
	sweepSize int
	mu        sync.RWMutex
}

type cachedReply struct {
	deadline time.Time
	text     string
}

func newReplyCache(ttl time.Duration) *replyCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &replyCache{
		entries:   make(map[string]cachedReply),
		ttl:       ttl,
		sweepSize: minSweepSize,
	}
}

// get returns the cached reply when present and still fresh.
func (c *replyCache) get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.deadline) {
		return "", false
	}
	return entry.text, true
}

// set stores a reply, sweeping expired entries once the map outgrows the
// last sweep's high-water mark.
func (c *replyCache) set(key, text string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cachedReply{text: text, deadline: now.Add(c.ttl)}

	if len(c.entries) >= c.sweepSize {
		c.sweep(now)
		c.sweepSize = max(minSweepSize, len(c.entries)*2)
	}
}

// sweep removes entries past their deadline. The caller holds the write lock.
func (c *replyCache) sweep(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.deadline) {
			delete(c.entries, key)
		}
	}
}

// size counts held entries, including expired ones not yet swept.
func (c *replyCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
