// Package middleware provides gRPC server interceptors that run before
// authentication and authorization: panic recovery, request ID propagation,
// per-method rate limiting, and request metrics.
package middleware
