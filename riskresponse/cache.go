package riskresponse

import (
	"sync"
	"time"
)

// lookupCache memoizes id-to-IRI existence lookups for a bounded TTL.
// Existence checks run before every mutating step of a create, so the
// same reference resolved twice within one request window costs one
// store round trip. A zero TTL disables caching entirely.
type lookupCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]lookupEntry
}

type lookupEntry struct {
	iri     string
	expires time.Time
}

func newLookupCache(ttl time.Duration) *lookupCache {
	return &lookupCache{
		ttl:     ttl,
		entries: make(map[string]lookupEntry),
	}
}

// get returns the cached IRI for an identifier if the entry is fresh.
func (c *lookupCache) get(id string) (string, bool) {
	if c.ttl <= 0 {
		return "", false
	}
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return "", false
	}
	return entry.iri, true
}

// put stores a resolved IRI. Negative results are never cached: an
// entity absent one moment may be created the next.
func (c *lookupCache) put(id, iri string) {
	if c.ttl <= 0 || iri == "" {
		return
	}
	c.mu.Lock()
	c.entries[id] = lookupEntry{iri: iri, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// invalidate drops an identifier after its entity is deleted.
func (c *lookupCache) invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}
