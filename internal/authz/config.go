package authz

import (
	"fmt"
	"time"
)

// Config represents the authorization configuration.
type Config struct {
	// Enabled enables authorization. When disabled every call is allowed.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Rules is the ordered rule list. The last rule must be an
	// unconditional */* catch-all.
	Rules []RuleConfig `yaml:"rules,omitempty" json:"rules,omitempty"`

	// Cache configures the optional decision cache.
	Cache *CacheConfig `yaml:"cache,omitempty" json:"cache,omitempty"`
}

// RuleConfig describes one rule in configuration.
type RuleConfig struct {
	// Name identifies the rule in logs and metrics.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Pattern is the method pattern, "<service>/<method>".
	Pattern string `yaml:"pattern" json:"pattern"`

	// Require selects the requirement kind: permit, deny, capability,
	// or expression.
	Require string `yaml:"require" json:"require"`

	// Capability is the required capability for require: capability.
	Capability string `yaml:"capability,omitempty" json:"capability,omitempty"`

	// Expression is the CEL expression for require: expression.
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`
}

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig configures the decision cache. Disabled by default.
type CacheConfig struct {
	// Enabled enables decision caching.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Backend selects the cache backend: memory (default) or redis.
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty"`

	// TTL is how long decisions stay cached. Defaults to 5 minutes.
	TTL time.Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`

	// MaxSize bounds the memory backend. Defaults to 10000 entries.
	MaxSize int `yaml:"maxSize,omitempty" json:"maxSize,omitempty"`

	// Redis configures the redis backend.
	Redis *RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	// Addr is the redis server address.
	Addr string `yaml:"addr" json:"addr"`

	// Password is the optional redis password.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// DB is the redis database number.
	DB int `yaml:"db,omitempty" json:"db,omitempty"`
}

// Validate validates the authorization configuration. Rule semantics
// (pattern syntax, catch-all placement, CEL compilation) are checked by
// BuildRuleSet.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	if len(c.Rules) == 0 {
		return NewConfigError("", ErrEmptyRuleSet)
	}

	if c.Cache != nil && c.Cache.Enabled {
		switch c.Cache.Backend {
		case "", CacheBackendMemory:
		case CacheBackendRedis:
			if c.Cache.Redis == nil || c.Cache.Redis.Addr == "" {
				return fmt.Errorf("cache backend redis requires an address")
			}
		default:
			return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
		}
	}

	return nil
}

// BuildRuleSet converts configured rules into a compiled RuleSet.
func BuildRuleSet(rules []RuleConfig) (*RuleSet, error) {
	built := make([]Rule, 0, len(rules))
	for i := range rules {
		rule, err := buildRule(&rules[i])
		if err != nil {
			return nil, err
		}
		built = append(built, rule)
	}
	return NewRuleSet(built)
}

// buildRule converts one RuleConfig into a Rule.
func buildRule(cfg *RuleConfig) (Rule, error) {
	name := cfg.Name
	if name == "" {
		name = cfg.Pattern
	}

	var requirement Requirement
	switch cfg.Require {
	case "permit":
		requirement = Permit()
	case "deny":
		requirement = Deny()
	case "capability":
		requirement = RequireCapability(cfg.Capability)
	case "expression":
		requirement = RequireExpression(cfg.Expression)
	default:
		return Rule{}, NewConfigError(name, fmt.Errorf("unknown requirement %q", cfg.Require))
	}

	return Rule{Name: cfg.Name, Pattern: cfg.Pattern, Requirement: requirement}, nil
}
