package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vyrodovalexey/grpcguard/internal/auth"
)

func newTestGRPCAuthorizer(t *testing.T) GRPCAuthorizer {
	t.Helper()

	authorizer, err := New(testAuthzConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = authorizer.Close() })

	return NewGRPCAuthorizer(authorizer)
}

func identityContext(capabilities ...string) context.Context {
	return auth.ContextWithIdentity(context.Background(), userIdentity(capabilities...))
}

func TestGRPCAuthorizer_Authorize(t *testing.T) {
	t.Parallel()

	authorizer := newTestGRPCAuthorizer(t)

	t.Run("allowed", func(t *testing.T) {
		t.Parallel()

		decision, err := authorizer.Authorize(identityContext("ROLE_USER"), "/Simple/SayHello")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("denied", func(t *testing.T) {
		t.Parallel()

		decision, err := authorizer.Authorize(identityContext("ROLE_USER"), "/Simple/StreamHello")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
	})

	t.Run("missing identity", func(t *testing.T) {
		t.Parallel()

		_, err := authorizer.Authorize(context.Background(), "/Simple/SayHello")
		assert.ErrorIs(t, err, ErrNoIdentity)
	})

	t.Run("qualified service name", func(t *testing.T) {
		t.Parallel()

		decision, err := authorizer.Authorize(identityContext(), "/grpc.health.v1.Health/Check")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})
}

func TestGRPCAuthorizer_UnaryInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := newTestGRPCAuthorizer(t).UnaryInterceptor()

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	}

	t.Run("allowed call reaches the handler", func(t *testing.T) {
		t.Parallel()

		resp, err := interceptor(identityContext("ROLE_USER"), nil,
			&grpc.UnaryServerInfo{FullMethod: "/Simple/SayHello"}, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})

	t.Run("denied call maps to permission denied", func(t *testing.T) {
		t.Parallel()

		_, err := interceptor(identityContext("ROLE_USER"), nil,
			&grpc.UnaryServerInfo{FullMethod: "/Simple/StreamHello"}, handler)
		require.Error(t, err)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
		assert.Contains(t, status.Convert(err).Message(), "missing capability ROLE_ADMIN")
	})

	t.Run("missing identity maps to unauthenticated", func(t *testing.T) {
		t.Parallel()

		_, err := interceptor(context.Background(), nil,
			&grpc.UnaryServerInfo{FullMethod: "/Simple/SayHello"}, handler)
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}

func TestGRPCAuthorizer_StreamInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := newTestGRPCAuthorizer(t).StreamInterceptor()
	info := &grpc.StreamServerInfo{FullMethod: "/Simple/StreamHello"}

	handler := func(srv interface{}, ss grpc.ServerStream) error {
		return nil
	}

	t.Run("allowed stream reaches the handler", func(t *testing.T) {
		t.Parallel()

		stream := &fakeServerStream{ctx: identityContext("ROLE_ADMIN")}
		assert.NoError(t, interceptor(nil, stream, info, handler))
	})

	t.Run("denied stream maps to permission denied", func(t *testing.T) {
		t.Parallel()

		stream := &fakeServerStream{ctx: identityContext("ROLE_USER")}
		err := interceptor(nil, stream, info, handler)
		require.Error(t, err)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("missing identity maps to unauthenticated", func(t *testing.T) {
		t.Parallel()

		stream := &fakeServerStream{ctx: context.Background()}
		err := interceptor(nil, stream, info, handler)
		require.Error(t, err)
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
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
