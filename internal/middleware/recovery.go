package middleware

import (
	"context"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vyrodovalexey/grpcguard/internal/observability"
)

// RecoveryOption is a functional option for the recovery interceptors.
type RecoveryOption func(*recoveryOptions)

type recoveryOptions struct {
	logger  observability.Logger
	metrics *Metrics
}

// WithRecoveryLogger sets the logger for the recovery interceptors.
func WithRecoveryLogger(logger observability.Logger) RecoveryOption {
	return func(o *recoveryOptions) {
		o.logger = logger
	}
}

// WithRecoveryMetrics sets the metrics for the recovery interceptors.
func WithRecoveryMetrics(metrics *Metrics) RecoveryOption {
	return func(o *recoveryOptions) {
		o.metrics = metrics
	}
}

func newRecoveryOptions(opts []RecoveryOption) *recoveryOptions {
	o := &recoveryOptions{
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// handlePanic logs the panic and converts it to an Internal status. The
// panic value is never echoed back to the caller.
func (o *recoveryOptions) handlePanic(method string, recovered interface{}) error {
	o.logger.Error("panic recovered",
		observability.String("method", method),
		observability.Any("panic", recovered),
		observability.String("stack", string(debug.Stack())),
	)
	o.metrics.RecordPanic()

	return status.Error(codes.Internal, "internal server error")
}

// RecoveryUnaryInterceptor returns a unary interceptor that recovers from
// handler panics.
func RecoveryUnaryInterceptor(opts ...RecoveryOption) grpc.UnaryServerInterceptor {
	o := newRecoveryOptions(opts)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = o.handlePanic(info.FullMethod, r)
			}
		}()

		return handler(ctx, req)
	}
}

// RecoveryStreamInterceptor returns a stream interceptor that recovers from
// handler panics.
func RecoveryStreamInterceptor(opts ...RecoveryOption) grpc.StreamServerInterceptor {
	o := newRecoveryOptions(opts)

	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = o.handlePanic(info.FullMethod, r)
			}
		}()

		return handler(srv, ss)
	}
}
