package authz

import (
	"github.com/vyrodovalexey/grpcguard/internal/config"
)

// ConvertFromGuardConfig converts a config.AuthorizationConfig (the YAML
// document section) to an authz.Config (used by authz.New). Returns
// (nil, nil) when the input is nil or authorization is disabled.
func ConvertFromGuardConfig(cfg *config.AuthorizationConfig) (*Config, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	authzCfg := &Config{
		Enabled: true,
		Rules:   convertRules(cfg.Rules),
	}

	if cfg.Cache != nil && cfg.Cache.Enabled {
		authzCfg.Cache = convertCacheConfig(cfg.Cache)
	}

	if err := authzCfg.Validate(); err != nil {
		return nil, err
	}

	return authzCfg, nil
}

// convertRules converts config rules to engine rules.
func convertRules(src []config.AuthzRuleConfig) []RuleConfig {
	rules := make([]RuleConfig, 0, len(src))
	for _, r := range src {
		rules = append(rules, RuleConfig{
			Name:       r.Name,
			Pattern:    r.Pattern,
			Require:    r.Require,
			Capability: r.Capability,
			Expression: r.Expression,
		})
	}
	return rules
}

// convertCacheConfig converts config.AuthzCacheConfig to authz.CacheConfig.
func convertCacheConfig(src *config.AuthzCacheConfig) *CacheConfig {
	cacheCfg := &CacheConfig{
		Enabled: true,
		Backend: src.Backend,
		TTL:     src.TTL.Duration(),
		MaxSize: src.MaxSize,
	}

	if src.Redis != nil {
		cacheCfg.Redis = &RedisConfig{
			Addr:     src.Redis.Addr,
			Password: src.Redis.Password,
			DB:       src.Redis.DB,
		}
	}

	return cacheCfg
}
