package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-for-hs256-tokens"

// signedToken builds and signs an HS256 token for tests.
func signedToken(t *testing.T, secret string, mutate func(b *jwt.Builder)) string {
	t.Helper()

	b := jwt.NewBuilder().
		Subject("alice").
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour))
	if mutate != nil {
		mutate(b)
	}

	token, err := b.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, []byte(secret)))
	require.NoError(t, err)
	return string(signed)
}

func TestNewJWTValidator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  *JWTConfig
		wantErr string
	}{
		{
			name:   "hs256 with secret",
			config: &JWTConfig{Secret: testSecret},
		},
		{
			name:   "explicit matching algorithm",
			config: &JWTConfig{Secret: testSecret, Algorithm: "HS256"},
		},
		{
			name:    "nil config",
			config:  nil,
			wantErr: "config is required",
		},
		{
			name:    "no key material",
			config:  &JWTConfig{},
			wantErr: "either secret or publicKeyFile",
		},
		{
			name:    "algorithm key mismatch",
			config:  &JWTConfig{Secret: testSecret, Algorithm: "RS256"},
			wantErr: "does not match",
		},
		{
			name:    "missing public key file",
			config:  &JWTConfig{PublicKeyFile: "/nonexistent/key.pem"},
			wantErr: "failed to load public key",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			validator, err := NewJWTValidator(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, validator)
		})
	}
}

func TestJWTValidator_Validate(t *testing.T) {
	t.Parallel()

	validator, err := NewJWTValidator(&JWTConfig{Secret: testSecret})
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()

		token := signedToken(t, testSecret, func(b *jwt.Builder) {
			b.Claim("roles", []string{"ROLE_USER", "ROLE_AUDITOR"})
		})

		identity, err := validator.Validate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "alice", identity.Subject)
		assert.Equal(t, AuthTypeJWT, identity.AuthType)
		assert.Equal(t, []string{"ROLE_USER", "ROLE_AUDITOR"}, identity.Capabilities)
		assert.False(t, identity.IsExpired())
	})

	t.Run("space delimited capability claim", func(t *testing.T) {
		t.Parallel()

		token := signedToken(t, testSecret, func(b *jwt.Builder) {
			b.Claim("roles", "ROLE_USER ROLE_ADMIN")
		})

		identity, err := validator.Validate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, []string{"ROLE_USER", "ROLE_ADMIN"}, identity.Capabilities)
	})

	t.Run("missing capability claim", func(t *testing.T) {
		t.Parallel()

		token := signedToken(t, testSecret, nil)

		identity, err := validator.Validate(context.Background(), token)
		require.NoError(t, err)
		assert.Empty(t, identity.Capabilities)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		token := signedToken(t, testSecret, func(b *jwt.Builder) {
			b.Expiration(time.Now().Add(-time.Hour))
		})

		_, err := validator.Validate(context.Background(), token)
		assert.True(t, errors.Is(err, ErrTokenExpired))
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		token := signedToken(t, "some-other-secret", nil)

		_, err := validator.Validate(context.Background(), token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()

		_, err := validator.Validate(context.Background(), "not.a.token")
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("missing subject", func(t *testing.T) {
		t.Parallel()

		token := signedToken(t, testSecret, func(b *jwt.Builder) {
			b.Subject("")
		})

		_, err := validator.Validate(context.Background(), token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestJWTValidator_IssuerAudience(t *testing.T) {
	t.Parallel()

	validator, err := NewJWTValidator(&JWTConfig{
		Secret:   testSecret,
		Issuer:   "grpcguard",
		Audience: "hello-service",
	})
	require.NoError(t, err)

	t.Run("matching issuer and audience", func(t *testing.T) {
		t.Parallel()

		token := signedToken(t, testSecret, func(b *jwt.Builder) {
			b.Issuer("grpcguard")
			b.Audience([]string{"hello-service"})
		})

		identity, err := validator.Validate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "alice", identity.Subject)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		t.Parallel()

		token := signedToken(t, testSecret, func(b *jwt.Builder) {
			b.Issuer("someone-else")
			b.Audience([]string{"hello-service"})
		})

		_, err := validator.Validate(context.Background(), token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("missing audience", func(t *testing.T) {
		t.Parallel()

		token := signedToken(t, testSecret, func(b *jwt.Builder) {
			b.Issuer("grpcguard")
		})

		_, err := validator.Validate(context.Background(), token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestJWTValidator_ClockSkew(t *testing.T) {
	t.Parallel()

	validator, err := NewJWTValidator(&JWTConfig{
		Secret:    testSecret,
		ClockSkew: 5 * time.Minute,
	})
	require.NoError(t, err)

	// Expired one minute ago but within the configured skew.
	token := signedToken(t, testSecret, func(b *jwt.Builder) {
		b.Expiration(time.Now().Add(-time.Minute))
	})

	identity, err := validator.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Subject)
}

func TestToStringSlice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value interface{}
		want  []string
	}{
		{name: "string slice", value: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "interface slice", value: []interface{}{"a", "b"}, want: []string{"a", "b"}},
		{name: "interface slice with non strings", value: []interface{}{"a", 42}, want: []string{"a"}},
		{name: "space delimited string", value: "a b  c", want: []string{"a", "b", "c"}},
		{name: "empty string", value: "", want: nil},
		{name: "unsupported type", value: 42, want: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, toStringSlice(tt.value))
		})
	}
}
