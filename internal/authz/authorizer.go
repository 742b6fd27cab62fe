package authz

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/grpcguard/internal/auth"
	"github.com/vyrodovalexey/grpcguard/internal/observability"
)

// authzTracer is the OTEL tracer used for authorization operations.
var authzTracer = otel.Tracer("grpcguard/authz")

// Request represents one authorization request.
type Request struct {
	// Identity is the authenticated identity. Nil means the call was not
	// authenticated.
	Identity *auth.Identity

	// Service is the fully-qualified service name.
	Service string

	// Method is the method name.
	Method string
}

// Authorizer evaluates calls against the active rule set. It supports
// atomic rule set replacement for configuration hot reload.
type Authorizer interface {
	// Authorize authorizes a request.
	Authorize(ctx context.Context, req *Request) (*Decision, error)

	// Swap replaces the active rule set. The new set must be fully
	// constructed before publication; in-flight evaluations keep using
	// the set they started with.
	Swap(rules *RuleSet)

	// RuleSet returns the active rule set.
	RuleSet() *RuleSet

	// Close closes the authorizer.
	Close() error
}

// authorizer implements the Authorizer interface.
type authorizer struct {
	config  *Config
	rules   atomic.Pointer[RuleSet]
	cache   DecisionCache
	logger  observability.Logger
	metrics *Metrics
}

// AuthorizerOption is a functional option for the authorizer.
type AuthorizerOption func(*authorizer)

// WithAuthorizerLogger sets the logger.
func WithAuthorizerLogger(logger observability.Logger) AuthorizerOption {
	return func(a *authorizer) {
		a.logger = logger
	}
}

// WithAuthorizerMetrics sets the metrics.
func WithAuthorizerMetrics(metrics *Metrics) AuthorizerOption {
	return func(a *authorizer) {
		a.metrics = metrics
	}
}

// WithDecisionCache sets the decision cache.
func WithDecisionCache(cache DecisionCache) AuthorizerOption {
	return func(a *authorizer) {
		a.cache = cache
	}
}

// New creates a new authorizer. The configured rules are compiled here, so
// a malformed configuration fails before the server starts.
func New(config *Config, opts ...AuthorizerOption) (Authorizer, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &authorizer{
		config: config,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.metrics == nil {
		a.metrics = NewMetrics("grpcguard")
	}

	if config.Enabled {
		rules, err := BuildRuleSet(config.Rules)
		if err != nil {
			return nil, err
		}
		a.rules.Store(rules)
		a.metrics.SetRuleCount(rules.Len())
	}

	a.initializeCache(config)

	return a, nil
}

// initializeCache initializes the decision cache.
func (a *authorizer) initializeCache(config *Config) {
	if a.cache != nil {
		return
	}
	if config.Cache == nil || !config.Cache.Enabled {
		a.cache = NewNoopDecisionCache()
		return
	}

	ttl := 5 * time.Minute
	if config.Cache.TTL > 0 {
		ttl = config.Cache.TTL
	}

	if config.Cache.Backend == CacheBackendRedis {
		a.cache = NewRedisDecisionCacheFromConfig(config.Cache.Redis, ttl,
			WithRedisCacheLogger(a.logger),
			WithRedisCacheMetrics(a.metrics),
		)
		return
	}

	maxSize := 10000
	if config.Cache.MaxSize > 0 {
		maxSize = config.Cache.MaxSize
	}
	a.cache = NewMemoryDecisionCache(ttl, maxSize,
		WithMemoryCacheLogger(a.logger),
		WithMemoryCacheMetrics(a.metrics),
	)
}

// Authorize authorizes a request.
func (a *authorizer) Authorize(ctx context.Context, req *Request) (*Decision, error) {
	start := time.Now()

	ctx, span := authzTracer.Start(ctx, "authz.authorize",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("authz.service", req.Service),
			attribute.String("authz.method", req.Method),
		),
	)
	defer span.End()

	if !a.config.Enabled {
		span.SetAttributes(attribute.String("authz.result", "disabled"))
		return &Decision{
			Allowed: true,
			Reason:  "authorization disabled",
		}, nil
	}

	if req.Identity == nil {
		span.SetAttributes(attribute.String("authz.result", "no_identity"))
		return nil, ErrNoIdentity
	}

	span.SetAttributes(attribute.String("authz.subject", req.Identity.Subject))

	cacheKey := a.buildCacheKey(req)
	if cached, ok := a.cache.Get(ctx, cacheKey); ok {
		span.SetAttributes(
			attribute.Bool("authz.cached", true),
			attribute.Bool("authz.allowed", cached.Allowed),
			attribute.String("authz.rule", cached.Rule),
		)
		return &Decision{
			Allowed: cached.Allowed,
			Reason:  cached.Reason,
			Rule:    cached.Rule,
			Cached:  true,
		}, nil
	}

	decision := a.RuleSet().Evaluate(&CallContext{
		Service:      req.Service,
		Method:       req.Method,
		Subject:      req.Identity.Subject,
		Capabilities: req.Identity.Capabilities,
	})

	a.cache.Set(ctx, cacheKey, &CachedDecision{
		Allowed: decision.Allowed,
		Reason:  decision.Reason,
		Rule:    decision.Rule,
	})

	result := "denied"
	if decision.Allowed {
		result = "allowed"
	}
	a.metrics.RecordEvaluation(result, time.Since(start))
	a.metrics.RecordDecision(result, decision.Rule)

	span.SetAttributes(
		attribute.Bool("authz.cached", false),
		attribute.Bool("authz.allowed", decision.Allowed),
		attribute.String("authz.rule", decision.Rule),
		attribute.String("authz.reason", decision.Reason),
	)

	a.logger.Debug("authorization decision",
		observability.String("subject", req.Identity.Subject),
		observability.String("service", req.Service),
		observability.String("method", req.Method),
		observability.Bool("allowed", decision.Allowed),
		observability.String("rule", decision.Rule),
		observability.String("reason", decision.Reason),
	)

	return &decision, nil
}

// Swap atomically replaces the active rule set and clears the decision
// cache, since cached decisions may no longer match the new rules.
func (a *authorizer) Swap(rules *RuleSet) {
	a.rules.Store(rules)
	a.metrics.SetRuleCount(rules.Len())
	a.cache.Clear(context.Background())

	a.logger.Info("authorization rule set swapped",
		observability.Int("rules", rules.Len()),
	)
}

// RuleSet returns the active rule set.
func (a *authorizer) RuleSet() *RuleSet {
	return a.rules.Load()
}

// buildCacheKey builds a cache key for the request.
func (a *authorizer) buildCacheKey(req *Request) *CacheKey {
	return &CacheKey{
		Subject:      req.Identity.Subject,
		Service:      req.Service,
		Method:       req.Method,
		Capabilities: req.Identity.Capabilities,
	}
}

// Close closes the authorizer.
func (a *authorizer) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}

// Ensure authorizer implements Authorizer.
var _ Authorizer = (*authorizer)(nil)
