// Package observability provides logging and tracing for grpcguard.
//
// The Logger interface wraps zap with a small field-based API. Every
// component in the module accepts a Logger through a functional option
// and falls back to NopLogger when none is provided, so library code
// never logs unless the caller asked for it.
package observability
