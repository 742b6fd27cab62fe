package authz

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vyrodovalexey/grpcguard/internal/auth"
	"github.com/vyrodovalexey/grpcguard/internal/grpcutil"
	"github.com/vyrodovalexey/grpcguard/internal/observability"
)

// GRPCAuthorizer handles authorization for gRPC requests.
type GRPCAuthorizer interface {
	// Authorize authorizes a gRPC request by its full method name.
	Authorize(ctx context.Context, fullMethod string) (*Decision, error)

	// UnaryInterceptor returns a unary server interceptor for authorization.
	UnaryInterceptor() grpc.UnaryServerInterceptor

	// StreamInterceptor returns a stream server interceptor for authorization.
	StreamInterceptor() grpc.StreamServerInterceptor
}

// grpcAuthorizer implements the GRPCAuthorizer interface.
type grpcAuthorizer struct {
	authorizer Authorizer
	logger     observability.Logger
}

// GRPCAuthorizerOption is a functional option for the gRPC authorizer.
type GRPCAuthorizerOption func(*grpcAuthorizer)

// WithGRPCAuthorizerLogger sets the logger.
func WithGRPCAuthorizerLogger(logger observability.Logger) GRPCAuthorizerOption {
	return func(a *grpcAuthorizer) {
		a.logger = logger
	}
}

// NewGRPCAuthorizer creates a new gRPC authorizer.
func NewGRPCAuthorizer(authorizer Authorizer, opts ...GRPCAuthorizerOption) GRPCAuthorizer {
	a := &grpcAuthorizer{
		authorizer: authorizer,
		logger:     observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Authorize authorizes a gRPC request.
func (a *grpcAuthorizer) Authorize(ctx context.Context, fullMethod string) (*Decision, error) {
	identity, _ := auth.IdentityFromContext(ctx)
	service, method := grpcutil.SplitFullMethod(fullMethod)

	return a.authorizer.Authorize(ctx, &Request{
		Identity: identity,
		Service:  service,
		Method:   method,
	})
}

// UnaryInterceptor returns a unary server interceptor for authorization.
func (a *grpcAuthorizer) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		decision, err := a.Authorize(ctx, info.FullMethod)
		if err != nil {
			return nil, a.toGRPCError(err)
		}

		if !decision.Allowed {
			a.logger.Warn("access denied",
				observability.String("method", info.FullMethod),
				observability.String("reason", decision.Reason),
				observability.String("rule", decision.Rule),
			)
			return nil, status.Error(codes.PermissionDenied, "access denied: "+decision.Reason)
		}

		return handler(ctx, req)
	}
}

// StreamInterceptor returns a stream server interceptor for authorization.
func (a *grpcAuthorizer) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		decision, err := a.Authorize(ss.Context(), info.FullMethod)
		if err != nil {
			return a.toGRPCError(err)
		}

		if !decision.Allowed {
			a.logger.Warn("access denied",
				observability.String("method", info.FullMethod),
				observability.String("reason", decision.Reason),
				observability.String("rule", decision.Rule),
			)
			return status.Error(codes.PermissionDenied, "access denied: "+decision.Reason)
		}

		return handler(srv, ss)
	}
}

// toGRPCError converts an authorization error to a gRPC error.
func (a *grpcAuthorizer) toGRPCError(err error) error {
	switch {
	case errors.Is(err, ErrNoIdentity):
		return status.Error(codes.Unauthenticated, "authentication required")
	default:
		return status.Error(codes.Internal, "authorization error")
	}
}

// Ensure grpcAuthorizer implements GRPCAuthorizer.
var _ GRPCAuthorizer = (*grpcAuthorizer)(nil)
