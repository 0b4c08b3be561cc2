package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheGetSetRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, ok := c.Get(ctx, "h1", "basic")
	assert.False(t, ok)

	c.Set(ctx, "h1", "basic", map[string]any{"reachable": true}, time.Minute)
	data, ok := c.Get(ctx, "h1", "basic")
	assert.True(t, ok)
	assert.Equal(t, true, data["reachable"])
}

func TestMemoryCacheExpiresAfterTTL(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "h1", "basic", map[string]any{"reachable": true}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "h1", "basic")
	assert.False(t, ok)
}

func TestMemoryCacheKeysAreScanKindScoped(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "h1", "basic", map[string]any{"k": "basic"}, time.Minute)
	c.Set(ctx, "h1", "full", map[string]any{"k": "full"}, time.Minute)

	basic, _ := c.Get(ctx, "h1", "basic")
	full, _ := c.Get(ctx, "h1", "full")
	assert.Equal(t, "basic", basic["k"])
	assert.Equal(t, "full", full["k"])
}
