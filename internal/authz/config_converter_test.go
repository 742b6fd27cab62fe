package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/grpcguard/internal/config"
)

func TestConvertFromGuardConfig(t *testing.T) {
	t.Parallel()

	src := &config.AuthorizationConfig{
		Enabled: true,
		Rules: []config.AuthzRuleConfig{
			{Name: "user-unary", Pattern: "Simple/SayHello", Require: "capability", Capability: "ROLE_USER"},
			{Pattern: "*/*", Require: "deny"},
		},
		Cache: &config.AuthzCacheConfig{
			Enabled: true,
			Backend: "redis",
			TTL:     config.Duration(2 * time.Minute),
			MaxSize: 500,
			Redis: &config.AuthzRedisConfig{
				Addr:     "localhost:6379",
				Password: "pw",
				DB:       3,
			},
		},
	}

	cfg, err := ConvertFromGuardConfig(src)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.True(t, cfg.Enabled)
	require.Len(t, cfg.Rules, 2)
	assert.Equal(t, "user-unary", cfg.Rules[0].Name)
	assert.Equal(t, "ROLE_USER", cfg.Rules[0].Capability)
	assert.Equal(t, "deny", cfg.Rules[1].Require)

	require.NotNil(t, cfg.Cache)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 500, cfg.Cache.MaxSize)
	require.NotNil(t, cfg.Cache.Redis)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 3, cfg.Cache.Redis.DB)
}

func TestConvertFromGuardConfig_NilAndDisabled(t *testing.T) {
	t.Parallel()

	cfg, err := ConvertFromGuardConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cfg, err = ConvertFromGuardConfig(&config.AuthorizationConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestConvertFromGuardConfig_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ConvertFromGuardConfig(&config.AuthorizationConfig{Enabled: true})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}
