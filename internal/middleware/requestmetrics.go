package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// MetricsUnaryInterceptor returns a unary interceptor that records request
// counts, durations, and inflight RPCs.
func MetricsUnaryInterceptor(metrics *Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		metrics.IncInflight()

		resp, err := handler(ctx, req)

		metrics.DecInflight()
		metrics.RecordRequest(info.FullMethod, status.Code(err).String(), time.Since(start))

		return resp, err
	}
}

// MetricsStreamInterceptor returns a stream interceptor that records request
// counts, durations, and inflight RPCs. The duration covers the stream's
// full lifetime.
func MetricsStreamInterceptor(metrics *Metrics) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		metrics.IncInflight()

		err := handler(srv, ss)

		metrics.DecInflight()
		metrics.RecordRequest(info.FullMethod, status.Code(err).String(), time.Since(start))

		return err
	}
}
