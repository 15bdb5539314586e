package resultcache

import (
	"context"
	"testing"
	"time"

	"github.com/accesslint/platform/pkg/discoveryengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), -time.Second))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry with an already-past expiry must read as a miss")
}

func TestPublisherRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewPublisher(NewMemoryCache())

	result := discoveryengine.Result{Status: discoveryengine.StatusCompleted, Pages: []discoveryengine.Page{{URL: "https://example.com/"}}}
	require.NoError(t, p.PublishDiscovery(ctx, "disc-1", result, DiscoveryResultTTL))

	got, ok, err := p.GetDiscovery(ctx, "disc-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.Status, got.Status)
	assert.Len(t, got.Pages, 1)
}

func TestPublisherIntegrityCheckEvictsMismatch(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	p := NewPublisher(cache)

	// Simulate a corrupted/stale entry: the value stored under
	// disc-2's key actually embeds disc-1's id.
	require.NoError(t, p.PublishDiscovery(ctx, "disc-1", discoveryengine.Result{}, DiscoveryResultTTL))
	stolen, ok, err := cache.Get(ctx, discoveryKey("disc-1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, cache.Set(ctx, discoveryKey("disc-2"), stolen, DiscoveryResultTTL))

	_, ok, err = p.GetDiscovery(ctx, "disc-2")
	require.NoError(t, err)
	assert.False(t, ok, "an entry whose embedded id doesn't match the looked-up key must miss")

	_, stillCached, err := cache.Get(ctx, discoveryKey("disc-2"))
	require.NoError(t, err)
	assert.False(t, stillCached, "the mismatched entry must be evicted")
}

func TestPublisherMissReturnsFalse(t *testing.T) {
	ctx := context.Background()
	p := NewPublisher(NewMemoryCache())

	_, ok, err := p.GetDiscovery(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}
