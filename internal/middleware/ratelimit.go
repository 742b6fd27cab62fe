package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vyrodovalexey/grpcguard/internal/observability"
)

// Rate limiter housekeeping constants.
const (
	// DefaultMethodTTL is how long an idle per-method limiter is kept.
	DefaultMethodTTL = 10 * time.Minute

	// MinCleanupInterval is the minimum interval for cleanup runs.
	MinCleanupInterval = 10 * time.Second

	// MaxCleanupInterval is the maximum interval for cleanup runs.
	MaxCleanupInterval = time.Minute
)

// methodEntry holds a limiter and its last access time for TTL cleanup.
type methodEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies a token bucket per RPC method.
type RateLimiter struct {
	methods   map[string]*methodEntry
	mu        sync.Mutex
	rps       float64
	burst     int
	logger    observability.Logger
	metrics   *Metrics
	methodTTL time.Duration
	stopCh    chan struct{}
	stopped   bool
}

// RateLimiterOption is a functional option for configuring the rate limiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterLogger sets the logger for the rate limiter.
func WithRateLimiterLogger(logger observability.Logger) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.logger = logger
	}
}

// WithRateLimiterMetrics sets the metrics for the rate limiter.
func WithRateLimiterMetrics(metrics *Metrics) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.metrics = metrics
	}
}

// WithMethodTTL sets the idle TTL for per-method limiter entries.
func WithMethodTTL(ttl time.Duration) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.methodTTL = ttl
	}
}

// NewRateLimiter creates a per-method rate limiter. Burst values below 1
// are raised to 1 so a zero-valued config still admits traffic at the
// configured rate.
func NewRateLimiter(rps float64, burst int, opts ...RateLimiterOption) *RateLimiter {
	if burst < 1 {
		burst = 1
	}

	rl := &RateLimiter{
		methods:   make(map[string]*methodEntry),
		rps:       rps,
		burst:     burst,
		logger:    observability.NopLogger(),
		methodTTL: DefaultMethodTTL,
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

// Allow reports whether a call to the given method may proceed.
func (rl *RateLimiter) Allow(fullMethod string) bool {
	now := time.Now()

	rl.mu.Lock()
	entry, exists := rl.methods[fullMethod]
	if !exists {
		entry = &methodEntry{
			limiter:    rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
			lastAccess: now,
		}
		rl.methods[fullMethod] = entry
	} else {
		entry.lastAccess = now
	}
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

// CleanupIdleMethods removes limiter entries idle longer than maxAge.
func (rl *RateLimiter) CleanupIdleMethods(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	removed := 0
	for method, entry := range rl.methods {
		if now.Sub(entry.lastAccess) > maxAge {
			delete(rl.methods, method)
			removed++
		}
	}

	if removed > 0 {
		rl.logger.Debug("cleaned up idle rate limiter entries",
			observability.Int("removed", removed),
			observability.Int("remaining", len(rl.methods)),
		)
	}
}

// StartAutoCleanup starts a goroutine that periodically removes idle
// per-method limiters. Stop terminates it.
func (rl *RateLimiter) StartAutoCleanup() {
	rl.mu.Lock()
	if rl.stopped {
		rl.mu.Unlock()
		return
	}
	rl.mu.Unlock()

	go func() {
		cleanupInterval := rl.methodTTL / 2
		if cleanupInterval > MaxCleanupInterval {
			cleanupInterval = MaxCleanupInterval
		}
		if cleanupInterval < MinCleanupInterval {
			cleanupInterval = MinCleanupInterval
		}

		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.CleanupIdleMethods(rl.methodTTL)
			case <-rl.stopCh:
				return
			}
		}
	}()
}

// Stop stops the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.stopped {
		rl.stopped = true
		close(rl.stopCh)
	}
}

// reject logs and records a rate limited call.
func (rl *RateLimiter) reject(fullMethod string) error {
	rl.logger.Warn("rate limit exceeded",
		observability.String("method", fullMethod),
	)
	rl.metrics.RecordRateLimitRejection(fullMethod)

	return status.Error(codes.ResourceExhausted, "rate limit exceeded")
}

// UnaryInterceptor returns a unary interceptor enforcing the rate limit.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !rl.Allow(info.FullMethod) {
			return nil, rl.reject(info.FullMethod)
		}
		return handler(ctx, req)
	}
}

// StreamInterceptor returns a stream interceptor enforcing the rate limit.
// The limit applies to stream establishment, not individual messages.
func (rl *RateLimiter) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if !rl.Allow(info.FullMethod) {
			return rl.reject(info.FullMethod)
		}
		return handler(srv, ss)
	}
}
