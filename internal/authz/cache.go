package authz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/vyrodovalexey/grpcguard/internal/observability"
)

// DecisionCache caches authorization decisions.
type DecisionCache interface {
	// Get retrieves a cached decision.
	Get(ctx context.Context, key *CacheKey) (*CachedDecision, bool)

	// Set stores a decision in the cache.
	Set(ctx context.Context, key *CacheKey, decision *CachedDecision)

	// Delete removes a decision from the cache.
	Delete(ctx context.Context, key *CacheKey)

	// Clear clears all cached decisions.
	Clear(ctx context.Context)

	// Close closes the cache.
	Close() error
}

// CacheKey identifies one (caller, method) combination.
type CacheKey struct {
	// Subject is the caller's subject identifier.
	Subject string

	// Service is the fully-qualified service name.
	Service string

	// Method is the method name.
	Method string

	// Capabilities is the caller's capability set. Part of the key so a
	// capability change invalidates stale decisions.
	Capabilities []string
}

// String returns a fixed-length digest of the cache key.
func (k *CacheKey) String() string {
	h := sha256.New()
	h.Write([]byte(k.Subject))
	h.Write([]byte(":"))
	h.Write([]byte(k.Service))
	h.Write([]byte(":"))
	h.Write([]byte(k.Method))
	for _, capability := range k.Capabilities {
		h.Write([]byte(":c:"))
		h.Write([]byte(capability))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CachedDecision represents a cached authorization decision.
type CachedDecision struct {
	// Allowed indicates if the call was allowed.
	Allowed bool `json:"allowed"`

	// Reason is the reason for the decision.
	Reason string `json:"reason,omitempty"`

	// Rule is the rule that made the decision.
	Rule string `json:"rule,omitempty"`

	// CachedAt is when the decision was cached.
	CachedAt time.Time `json:"cached_at"`

	// ExpiresAt is when the cached decision expires.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the cached decision has expired.
func (d *CachedDecision) IsExpired() bool {
	return time.Now().After(d.ExpiresAt)
}

// memoryDecisionCache implements DecisionCache in memory with a TTL and a
// size bound.
type memoryDecisionCache struct {
	mu       sync.RWMutex
	entries  map[string]*CachedDecision
	ttl      time.Duration
	maxSize  int
	logger   observability.Logger
	metrics  *Metrics
	stopChan chan struct{}
}

// MemoryCacheOption is a functional option for the memory cache.
type MemoryCacheOption func(*memoryDecisionCache)

// WithMemoryCacheLogger sets the logger.
func WithMemoryCacheLogger(logger observability.Logger) MemoryCacheOption {
	return func(c *memoryDecisionCache) {
		c.logger = logger
	}
}

// WithMemoryCacheMetrics sets the metrics.
func WithMemoryCacheMetrics(metrics *Metrics) MemoryCacheOption {
	return func(c *memoryDecisionCache) {
		c.metrics = metrics
	}
}

// NewMemoryDecisionCache creates a new in-memory decision cache.
func NewMemoryDecisionCache(ttl time.Duration, maxSize int, opts ...MemoryCacheOption) DecisionCache {
	c := &memoryDecisionCache{
		entries:  make(map[string]*CachedDecision),
		ttl:      ttl,
		maxSize:  maxSize,
		logger:   observability.NopLogger(),
		stopChan: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupLoop()

	return c
}

// Get retrieves a cached decision.
func (c *memoryDecisionCache) Get(ctx context.Context, key *CacheKey) (*CachedDecision, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	decision, ok := c.entries[key.String()]
	if !ok || decision.IsExpired() {
		c.metrics.RecordCacheMiss()
		return nil, false
	}

	c.metrics.RecordCacheHit()
	return decision, true
}

// Set stores a decision in the cache.
func (c *memoryDecisionCache) Set(ctx context.Context, key *CacheKey, decision *CachedDecision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	decision.CachedAt = time.Now()
	decision.ExpiresAt = time.Now().Add(c.ttl)
	c.entries[key.String()] = decision
}

// Delete removes a decision from the cache.
func (c *memoryDecisionCache) Delete(ctx context.Context, key *CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key.String())
}

// Clear clears all cached decisions.
func (c *memoryDecisionCache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CachedDecision)
}

// Close stops the cleanup goroutine.
func (c *memoryDecisionCache) Close() error {
	close(c.stopChan)
	return nil
}

// evictOldest removes expired entries and, if still over capacity, the
// oldest entry. Caller must hold the write lock.
func (c *memoryDecisionCache) evictOldest() {
	for key, decision := range c.entries {
		if decision.IsExpired() {
			delete(c.entries, key)
		}
	}

	if len(c.entries) >= c.maxSize {
		var oldestKey string
		var oldestTime time.Time

		for key, decision := range c.entries {
			if oldestKey == "" || decision.CachedAt.Before(oldestTime) {
				oldestKey = key
				oldestTime = decision.CachedAt
			}
		}

		if oldestKey != "" {
			delete(c.entries, oldestKey)
		}
	}
}

// cleanupLoop periodically removes expired entries.
func (c *memoryDecisionCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopChan:
			return
		}
	}
}

// cleanup removes expired entries.
func (c *memoryDecisionCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, decision := range c.entries {
		if decision.IsExpired() {
			delete(c.entries, key)
		}
	}
}

// noopDecisionCache never caches anything. Used when caching is disabled.
type noopDecisionCache struct{}

// NewNoopDecisionCache creates a new no-op decision cache.
func NewNoopDecisionCache() DecisionCache {
	return &noopDecisionCache{}
}

// Get always returns false.
func (c *noopDecisionCache) Get(ctx context.Context, key *CacheKey) (*CachedDecision, bool) {
	return nil, false
}

// Set does nothing.
func (c *noopDecisionCache) Set(ctx context.Context, key *CacheKey, decision *CachedDecision) {}

// Delete does nothing.
func (c *noopDecisionCache) Delete(ctx context.Context, key *CacheKey) {}

// Clear does nothing.
func (c *noopDecisionCache) Clear(ctx context.Context) {}

// Close does nothing.
func (c *noopDecisionCache) Close() error {
	return nil
}

// Ensure implementations satisfy the interface.
var (
	_ DecisionCache = (*memoryDecisionCache)(nil)
	_ DecisionCache = (*noopDecisionCache)(nil)
)
