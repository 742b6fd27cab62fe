package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/grpcguard/internal/auth"
)

func testAuthzConfig() *Config {
	return &Config{
		Enabled: true,
		Rules: []RuleConfig{
			{Name: "admin-stream", Pattern: "Simple/StreamHello", Require: "capability", Capability: "ROLE_ADMIN"},
			{Name: "user-unary", Pattern: "Simple/SayHello", Require: "capability", Capability: "ROLE_USER"},
			{Name: "infra", Pattern: "grpc.*/*", Require: "permit"},
			{Name: "default-deny", Pattern: "*/*", Require: "deny"},
		},
	}
}

func userIdentity(capabilities ...string) *auth.Identity {
	return &auth.Identity{
		Subject:      "alice",
		AuthType:     auth.AuthTypeBasic,
		Capabilities: capabilities,
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()

		_, err := New(nil)
		assert.Error(t, err)
	})

	t.Run("invalid rules fail construction", func(t *testing.T) {
		t.Parallel()

		_, err := New(&Config{
			Enabled: true,
			Rules:   []RuleConfig{{Pattern: "Simple/SayHello", Require: "permit"}},
		})
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		authorizer, err := New(testAuthzConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = authorizer.Close() })

		assert.Equal(t, 4, authorizer.RuleSet().Len())
	})
}

func TestAuthorizer_Authorize(t *testing.T) {
	t.Parallel()

	authorizer, err := New(testAuthzConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = authorizer.Close() })

	ctx := context.Background()

	t.Run("allowed with capability", func(t *testing.T) {
		t.Parallel()

		decision, err := authorizer.Authorize(ctx, &Request{
			Identity: userIdentity("ROLE_USER"),
			Service:  "Simple",
			Method:   "SayHello",
		})
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, "user-unary", decision.Rule)
	})

	t.Run("denied without capability", func(t *testing.T) {
		t.Parallel()

		decision, err := authorizer.Authorize(ctx, &Request{
			Identity: userIdentity("ROLE_USER"),
			Service:  "Simple",
			Method:   "StreamHello",
		})
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, "missing capability ROLE_ADMIN", decision.Reason)
	})

	t.Run("no identity", func(t *testing.T) {
		t.Parallel()

		_, err := authorizer.Authorize(ctx, &Request{
			Service: "Simple",
			Method:  "SayHello",
		})
		assert.ErrorIs(t, err, ErrNoIdentity)
	})

	t.Run("catch-all denies unknown methods", func(t *testing.T) {
		t.Parallel()

		decision, err := authorizer.Authorize(ctx, &Request{
			Identity: userIdentity("ROLE_ADMIN", "ROLE_USER"),
			Service:  "Other",
			Method:   "Method",
		})
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonDenyRule, decision.Reason)
	})
}

func TestAuthorizer_Disabled(t *testing.T) {
	t.Parallel()

	authorizer, err := New(&Config{Enabled: false})
	require.NoError(t, err)
	t.Cleanup(func() { _ = authorizer.Close() })

	decision, err := authorizer.Authorize(context.Background(), &Request{
		Service: "Simple",
		Method:  "SayHello",
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, "authorization disabled", decision.Reason)
}

func TestAuthorizer_CachedDecisions(t *testing.T) {
	t.Parallel()

	config := testAuthzConfig()
	config.Cache = &CacheConfig{Enabled: true, TTL: time.Minute}

	authorizer, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = authorizer.Close() })

	ctx := context.Background()
	req := &Request{
		Identity: userIdentity("ROLE_USER"),
		Service:  "Simple",
		Method:   "SayHello",
	}

	first, err := authorizer.Authorize(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := authorizer.Authorize(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Allowed, second.Allowed)
	assert.Equal(t, first.Rule, second.Rule)
}

func TestAuthorizer_Swap(t *testing.T) {
	t.Parallel()

	config := testAuthzConfig()
	config.Cache = &CacheConfig{Enabled: true, TTL: time.Minute}

	authorizer, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = authorizer.Close() })

	ctx := context.Background()
	req := &Request{
		Identity: userIdentity(),
		Service:  "Simple",
		Method:   "SayHello",
	}

	decision, err := authorizer.Authorize(ctx, req)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	// Replace the rules with a permissive set; the cached deny must not
	// survive the swap.
	replacement, err := BuildRuleSet([]RuleConfig{
		{Name: "allow-all", Pattern: "*/*", Require: "permit"},
	})
	require.NoError(t, err)

	authorizer.Swap(replacement)
	assert.Equal(t, 1, authorizer.RuleSet().Len())

	decision, err = authorizer.Authorize(ctx, req)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.False(t, decision.Cached)
	assert.Equal(t, "allow-all", decision.Rule)
}
