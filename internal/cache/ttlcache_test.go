package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheGetMissReturnsFalse(t *testing.T) {
	c := New[string]()
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestTTLCacheRoundTrip(t *testing.T) {
	c := New[string]()
	c.Set("k", "v", time.Minute)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestTTLCacheExpiresEntries(t *testing.T) {
	c := New[string]()
	c.Set("k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := New[int]()
	c.Set("k", 42, 0)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestTTLCacheDelete(t *testing.T) {
	c := New[string]()
	c.Set("k", "v", time.Minute)
	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}
