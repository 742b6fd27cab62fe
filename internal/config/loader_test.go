package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfigYAML = `apiVersion: grpcguard.io/v1
kind: Guard
metadata:
  name: test
spec:
  server:
    address: "*:9090"
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "grpcguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, minimalConfigYAML)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, APIVersion, cfg.APIVersion)
	assert.Equal(t, KindGuard, cfg.Kind)
	assert.Equal(t, "test", cfg.Metadata.Name)
	require.NotNil(t, cfg.Spec.Server)
	assert.Equal(t, "*:9090", cfg.Spec.Server.Address)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig("/nonexistent/grpcguard.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "apiVersion: [unclosed")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadConfigFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(minimalConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Metadata.Name)
}

func TestLoadConfig_FullDocument(t *testing.T) {
	path := writeConfigFile(t, `apiVersion: grpcguard.io/v1
kind: Guard
metadata:
  name: full
spec:
  server:
    address: "unix:/tmp/guard.sock"
    gracefulTimeout: 10s
    keepalive:
      time: 2m
      timeout: 20s
  auth:
    enabled: true
    allowAnonymous: true
    users:
      - username: alice
        password: secret
        capabilities: [ROLE_USER]
    jwt:
      enabled: true
      secret: topsecret
      algorithm: HS256
      clockSkew: 30s
  authorization:
    enabled: true
    rules:
      - pattern: "Simple/SayHello"
        require: capability
        capability: ROLE_USER
      - pattern: "*/*"
        require: deny
    cache:
      enabled: true
      backend: memory
      ttl: 5m
      maxSize: 100
  rateLimit:
    enabled: true
    requestsPerSecond: 50
    burst: 10
  observability:
    logging:
      level: debug
      format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Spec.Server.GracefulTimeout.Duration())
	assert.Equal(t, 2*time.Minute, cfg.Spec.Server.Keepalive.Time.Duration())

	require.NotNil(t, cfg.Spec.Auth)
	assert.True(t, cfg.Spec.Auth.AllowAnonymous)
	require.Len(t, cfg.Spec.Auth.Users, 1)
	assert.Equal(t, []string{"ROLE_USER"}, cfg.Spec.Auth.Users[0].Capabilities)
	assert.Equal(t, 30*time.Second, cfg.Spec.Auth.JWT.ClockSkew.Duration())

	require.NotNil(t, cfg.Spec.Authorization)
	require.Len(t, cfg.Spec.Authorization.Rules, 2)
	assert.Equal(t, "capability", cfg.Spec.Authorization.Rules[0].Require)
	assert.Equal(t, 5*time.Minute, cfg.Spec.Authorization.Cache.TTL.Duration())

	require.NotNil(t, cfg.Spec.RateLimit)
	assert.InEpsilon(t, 50.0, cfg.Spec.RateLimit.RequestsPerSecond, 0.001)

	require.NotNil(t, cfg.Spec.Observability)
	assert.Equal(t, "debug", cfg.Spec.Observability.Logging.Level)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("GUARD_TEST_ADDR", "127.0.0.1:7000")
	t.Setenv("GUARD_TEST_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "set variable",
			input: "address: ${GUARD_TEST_ADDR}",
			want:  "address: 127.0.0.1:7000",
		},
		{
			name:  "unset variable",
			input: "secret: ${GUARD_TEST_UNSET}",
			want:  "secret: ",
		},
		{
			name:  "unset with default",
			input: "secret: ${GUARD_TEST_UNSET:-fallback}",
			want:  "secret: fallback",
		},
		{
			name:  "set empty beats default",
			input: "secret: ${GUARD_TEST_EMPTY:-fallback}",
			want:  "secret: ",
		},
		{
			name:  "escaped dollar",
			input: "secret: $${NOT_A_VAR}",
			want:  "secret: ${NOT_A_VAR}",
		},
		{
			name:  "multiple variables",
			input: "${GUARD_TEST_ADDR}/${GUARD_TEST_UNSET:-x}",
			want:  "127.0.0.1:7000/x",
		},
		{
			name:  "no variables",
			input: "plain text",
			want:  "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substituteEnvVars(tt.input))
		})
	}
}

func TestLoadConfig_EnvSubstitution(t *testing.T) {
	t.Setenv("GUARD_TEST_NAME", "from-env")

	path := writeConfigFile(t, `apiVersion: grpcguard.io/v1
kind: Guard
metadata:
  name: ${GUARD_TEST_NAME}
spec:
  server:
    address: "${GUARD_TEST_ADDR2:-*:9090}"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Metadata.Name)
	assert.Equal(t, "*:9090", cfg.Spec.Server.Address)
}

func TestResolveConfigPath(t *testing.T) {
	path := writeConfigFile(t, minimalConfigYAML)

	resolved, err := ResolveConfigPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)

	_, err = ResolveConfigPath("/nonexistent/grpcguard.yaml")
	require.Error(t, err)

	_, err = ResolveConfigPath("definitely-missing.yaml")
	require.Error(t, err)
}
