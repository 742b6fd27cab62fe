package middleware

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/vyrodovalexey/grpcguard/internal/observability"
)

// RequestIDKey is the metadata key for request IDs.
const RequestIDKey = "x-request-id"

// requestIDFromMetadata returns the incoming request ID, generating one if
// the caller did not supply it.
func requestIDFromMetadata(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(RequestIDKey); len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return uuid.New().String()
}

// RequestIDUnaryInterceptor returns a unary interceptor that attaches a
// request ID to the context and echoes it in the response header.
func RequestIDUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		requestID := requestIDFromMetadata(ctx)
		ctx = observability.ContextWithRequestID(ctx, requestID)

		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, requestID))

		return handler(ctx, req)
	}
}

// RequestIDStreamInterceptor returns a stream interceptor that attaches a
// request ID to the stream context and echoes it in the response header.
func RequestIDStreamInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		requestID := requestIDFromMetadata(ss.Context())
		ctx := observability.ContextWithRequestID(ss.Context(), requestID)

		_ = ss.SetHeader(metadata.Pairs(RequestIDKey, requestID))

		return handler(srv, &requestIDServerStream{ServerStream: ss, ctx: ctx})
	}
}

// requestIDServerStream overrides the stream context with the request ID
// attached.
type requestIDServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *requestIDServerStream) Context() context.Context {
	return s.ctx
}
