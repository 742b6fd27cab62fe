package config

// AuthorizationConfig configures the authorization rule engine.
type AuthorizationConfig struct {
	// Enabled enables authorization.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Rules is the ordered rule list. The last rule must be an
	// unconditional */* catch-all.
	Rules []AuthzRuleConfig `yaml:"rules,omitempty" json:"rules,omitempty"`

	// Cache configures the optional decision cache.
	Cache *AuthzCacheConfig `yaml:"cache,omitempty" json:"cache,omitempty"`
}

// AuthzRuleConfig describes one authorization rule.
type AuthzRuleConfig struct {
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

// AuthzCacheConfig configures the decision cache.
type AuthzCacheConfig struct {
	// Enabled enables decision caching.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Backend selects the cache backend: memory (default) or redis.
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty"`

	// TTL is how long decisions stay cached.
	TTL Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`

	// MaxSize bounds the memory backend.
	MaxSize int `yaml:"maxSize,omitempty" json:"maxSize,omitempty"`

	// Redis configures the redis backend.
	Redis *AuthzRedisConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// AuthzRedisConfig configures the redis cache backend.
type AuthzRedisConfig struct {
	// Addr is the redis server address.
	Addr string `yaml:"addr" json:"addr"`

	// Password is the optional redis password.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// DB is the redis database number.
	DB int `yaml:"db,omitempty" json:"db,omitempty"`
}
