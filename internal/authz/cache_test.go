package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_String(t *testing.T) {
	t.Parallel()

	base := &CacheKey{
		Subject:      "alice",
		Service:      "Simple",
		Method:       "SayHello",
		Capabilities: []string{"ROLE_USER"},
	}

	assert.Equal(t, base.String(), base.String())
	assert.Len(t, base.String(), 64)

	variants := []*CacheKey{
		{Subject: "bob", Service: "Simple", Method: "SayHello", Capabilities: []string{"ROLE_USER"}},
		{Subject: "alice", Service: "Other", Method: "SayHello", Capabilities: []string{"ROLE_USER"}},
		{Subject: "alice", Service: "Simple", Method: "StreamHello", Capabilities: []string{"ROLE_USER"}},
		{Subject: "alice", Service: "Simple", Method: "SayHello", Capabilities: []string{"ROLE_ADMIN"}},
		{Subject: "alice", Service: "Simple", Method: "SayHello"},
	}
	for _, variant := range variants {
		assert.NotEqual(t, base.String(), variant.String())
	}
}

func TestMemoryDecisionCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	key := &CacheKey{Subject: "alice", Service: "Simple", Method: "SayHello"}

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()

		cache := NewMemoryDecisionCache(time.Minute, 10)
		defer func() { require.NoError(t, cache.Close()) }()

		_, ok := cache.Get(ctx, key)
		assert.False(t, ok)

		cache.Set(ctx, key, &CachedDecision{Allowed: true, Rule: "user-unary"})

		cached, ok := cache.Get(ctx, key)
		require.True(t, ok)
		assert.True(t, cached.Allowed)
		assert.Equal(t, "user-unary", cached.Rule)
	})

	t.Run("expiry", func(t *testing.T) {
		t.Parallel()

		cache := NewMemoryDecisionCache(10*time.Millisecond, 10)
		defer func() { require.NoError(t, cache.Close()) }()

		cache.Set(ctx, key, &CachedDecision{Allowed: true})
		time.Sleep(30 * time.Millisecond)

		_, ok := cache.Get(ctx, key)
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		cache := NewMemoryDecisionCache(time.Minute, 10)
		defer func() { require.NoError(t, cache.Close()) }()

		cache.Set(ctx, key, &CachedDecision{Allowed: true})
		cache.Delete(ctx, key)

		_, ok := cache.Get(ctx, key)
		assert.False(t, ok)
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()

		cache := NewMemoryDecisionCache(time.Minute, 10)
		defer func() { require.NoError(t, cache.Close()) }()

		cache.Set(ctx, key, &CachedDecision{Allowed: true})
		cache.Clear(ctx)

		_, ok := cache.Get(ctx, key)
		assert.False(t, ok)
	})

	t.Run("eviction keeps the cache bounded", func(t *testing.T) {
		t.Parallel()

		cache := NewMemoryDecisionCache(time.Minute, 2)
		defer func() { require.NoError(t, cache.Close()) }()

		keys := []*CacheKey{
			{Subject: "a", Service: "S", Method: "M"},
			{Subject: "b", Service: "S", Method: "M"},
			{Subject: "c", Service: "S", Method: "M"},
		}
		for _, k := range keys {
			cache.Set(ctx, k, &CachedDecision{Allowed: true})
		}

		hits := 0
		for _, k := range keys {
			if _, ok := cache.Get(ctx, k); ok {
				hits++
			}
		}
		assert.LessOrEqual(t, hits, 2)

		// The most recent entry survives eviction.
		_, ok := cache.Get(ctx, keys[2])
		assert.True(t, ok)
	})
}

func TestNoopDecisionCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := NewNoopDecisionCache()
	key := &CacheKey{Subject: "alice", Service: "Simple", Method: "SayHello"}

	cache.Set(ctx, key, &CachedDecision{Allowed: true})
	_, ok := cache.Get(ctx, key)
	assert.False(t, ok)

	cache.Delete(ctx, key)
	cache.Clear(ctx)
	assert.NoError(t, cache.Close())
}
