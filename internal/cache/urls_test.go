package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestURLCacheRoundTrip(t *testing.T) {
	c := NewURLCache(time.Minute)
	_, ok := c.Get("track-1")
	assert.False(t, ok)

	c.Put("track-1", "https://cdn.example.com/a.mp3")
	got, ok := c.Get("track-1")
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/a.mp3", got)

	c.Remove("track-1")
	_, ok = c.Get("track-1")
	assert.False(t, ok)
}

func TestURLCacheExpiry(t *testing.T) {
	c := NewURLCache(time.Millisecond)
	c.Put("track-1", "https://cdn.example.com/a.mp3")
	c.Put("track-2", "https://cdn.example.com/b.mp3")

	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("track-1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Purge())
}
