package riskresponse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLookupCache(t *testing.T) {
	c := newLookupCache(time.Minute)

	_, ok := c.get("risk--r1")
	assert.False(t, ok)

	c.put("risk--r1", "http://example.org/risk--r1")
	iri, ok := c.get("risk--r1")
	assert.True(t, ok)
	assert.Equal(t, "http://example.org/risk--r1", iri)

	c.invalidate("risk--r1")
	_, ok = c.get("risk--r1")
	assert.False(t, ok)
}

func TestLookupCacheNeverStoresEmptyResults(t *testing.T) {
	c := newLookupCache(time.Minute)
	c.put("risk--r1", "")

	_, ok := c.get("risk--r1")
	assert.False(t, ok)
}

func TestLookupCacheZeroTTLDisables(t *testing.T) {
	c := newLookupCache(0)
	c.put("risk--r1", "http://example.org/risk--r1")

	_, ok := c.get("risk--r1")
	assert.False(t, ok)
}

func TestLookupCacheExpires(t *testing.T) {
	c := newLookupCache(time.Nanosecond)
	c.put("risk--r1", "http://example.org/risk--r1")
	time.Sleep(time.Millisecond)

	_, ok := c.get("risk--r1")
	assert.False(t, ok)
}
