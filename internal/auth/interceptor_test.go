package auth

import (
	"context"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func testAuthConfig() *Config {
	return &Config{
		Enabled: true,
		Users: []UserConfig{
			{Username: "alice", Password: "pw", Capabilities: []string{"ROLE_USER"}},
			{Username: "admin", Capabilities: []string{"ROLE_ADMIN", "ROLE_USER"}},
		},
		Basic:   &BasicConfig{Enabled: true},
		Preauth: &PreauthConfig{Enabled: true},
		JWT:     &JWTConfig{Enabled: true, Secret: testSecret},
	}
}

func TestNewGRPCAuthenticator(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()

		_, err := NewGRPCAuthenticator(nil)
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()

		_, err := NewGRPCAuthenticator(&Config{Enabled: true})
		assert.Error(t, err)
	})

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		authn, err := NewGRPCAuthenticator(testAuthConfig(),
			WithGRPCAuthenticatorMetrics(NewMetricsWithRegisterer("test", prometheus.NewRegistry())))
		require.NoError(t, err)
		require.NotNil(t, authn)
	})
}

func TestGRPCAuthenticator_Authenticate(t *testing.T) {
	t.Parallel()

	authn, err := NewGRPCAuthenticator(testAuthConfig())
	require.NoError(t, err)

	t.Run("jwt bearer", func(t *testing.T) {
		t.Parallel()

		token := signedToken(t, testSecret, func(b *jwt.Builder) {
			b.Claim("roles", []string{"ROLE_USER"})
		})
		ctx := contextWithMetadata(AuthorizationKey, "Bearer "+token)

		identity, err := authn.Authenticate(ctx)
		require.NoError(t, err)
		assert.Equal(t, AuthTypeJWT, identity.AuthType)
		assert.Equal(t, "alice", identity.Subject)
	})

	t.Run("basic credentials", func(t *testing.T) {
		t.Parallel()

		ctx := contextWithMetadata(AuthorizationKey, basicHeader("alice", "pw"))

		identity, err := authn.Authenticate(ctx)
		require.NoError(t, err)
		assert.Equal(t, AuthTypeBasic, identity.AuthType)
		assert.Equal(t, []string{"ROLE_USER"}, identity.Capabilities)
	})

	t.Run("preauth header", func(t *testing.T) {
		t.Parallel()

		ctx := contextWithMetadata(DefaultPreauthHeader, "admin")

		identity, err := authn.Authenticate(ctx)
		require.NoError(t, err)
		assert.Equal(t, AuthTypePreauth, identity.AuthType)
		assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER"}, identity.Capabilities)
	})

	t.Run("invalid basic password fails without fallthrough", func(t *testing.T) {
		t.Parallel()

		ctx := contextWithMetadata(
			AuthorizationKey, basicHeader("alice", "wrong"),
			DefaultPreauthHeader, "admin",
		)

		_, err := authn.Authenticate(ctx)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("invalid bearer token fails without fallthrough", func(t *testing.T) {
		t.Parallel()

		ctx := contextWithMetadata(AuthorizationKey, "Bearer garbage")

		_, err := authn.Authenticate(ctx)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no credentials", func(t *testing.T) {
		t.Parallel()

		_, err := authn.Authenticate(context.Background())
		assert.ErrorIs(t, err, ErrNoCredentials)
	})
}

func TestGRPCAuthenticator_AllowAnonymous(t *testing.T) {
	t.Parallel()

	config := testAuthConfig()
	config.AllowAnonymous = true

	authn, err := NewGRPCAuthenticator(config)
	require.NoError(t, err)

	identity, err := authn.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AuthTypeAnonymous, identity.AuthType)
	assert.Empty(t, identity.Capabilities)
}

func TestGRPCAuthenticator_UnaryInterceptor(t *testing.T) {
	t.Parallel()

	authn, err := NewGRPCAuthenticator(testAuthConfig())
	require.NoError(t, err)

	interceptor := authn.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/hello.Simple/SayHello"}

	t.Run("authenticated call reaches the handler", func(t *testing.T) {
		t.Parallel()

		ctx := contextWithMetadata(AuthorizationKey, basicHeader("alice", "pw"))

		var handlerIdentity *Identity
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			identity, ok := IdentityFromContext(ctx)
			require.True(t, ok)
			handlerIdentity = identity
			return "ok", nil
		}

		resp, err := interceptor(ctx, nil, info, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
		assert.Equal(t, "alice", handlerIdentity.Subject)
	})

	t.Run("unauthenticated call is rejected", func(t *testing.T) {
		t.Parallel()

		called := false
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			called = true
			return nil, nil
		}

		_, err := interceptor(context.Background(), nil, info, handler)
		require.Error(t, err)
		assert.False(t, called)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("expired token maps to unauthenticated", func(t *testing.T) {
		t.Parallel()

		token := signedToken(t, testSecret, func(b *jwt.Builder) {
			b.Expiration(time.Now().Add(-time.Hour))
		})
		ctx := contextWithMetadata(AuthorizationKey, "Bearer "+token)

		_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return nil, nil
		})
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
		assert.Contains(t, status.Convert(err).Message(), "token expired")
	})
}

// fakeServerStream is a minimal grpc.ServerStream for interceptor tests.
type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context {
	return s.ctx
}

func TestGRPCAuthenticator_StreamInterceptor(t *testing.T) {
	t.Parallel()

	authn, err := NewGRPCAuthenticator(testAuthConfig())
	require.NoError(t, err)

	interceptor := authn.StreamInterceptor()
	info := &grpc.StreamServerInfo{FullMethod: "/hello.Simple/StreamHello"}

	t.Run("authenticated stream carries the identity", func(t *testing.T) {
		t.Parallel()

		stream := &fakeServerStream{
			ctx: contextWithMetadata(DefaultPreauthHeader, "admin"),
		}

		handler := func(srv interface{}, ss grpc.ServerStream) error {
			identity, ok := IdentityFromContext(ss.Context())
			require.True(t, ok)
			assert.Equal(t, "admin", identity.Subject)
			return nil
		}

		require.NoError(t, interceptor(nil, stream, info, handler))
	})

	t.Run("unauthenticated stream is rejected", func(t *testing.T) {
		t.Parallel()

		stream := &fakeServerStream{ctx: context.Background()}

		err := interceptor(nil, stream, info, func(srv interface{}, ss grpc.ServerStream) error {
			t.Fatal("handler should not be called")
			return nil
		})
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}
