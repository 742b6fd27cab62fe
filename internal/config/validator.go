package config

import (
	"fmt"
	"strings"
)

// ValidateConfig performs structural validation of a loaded configuration
// document. Domain packages perform deeper validation of their own sections.
func ValidateConfig(cfg *GuardConfig) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.APIVersion != APIVersion {
		return fmt.Errorf("unsupported apiVersion %q, expected %q", cfg.APIVersion, APIVersion)
	}

	if cfg.Kind != KindGuard {
		return fmt.Errorf("unsupported kind %q, expected %q", cfg.Kind, KindGuard)
	}

	if cfg.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}

	if err := validateServer(cfg.Spec.Server); err != nil {
		return err
	}

	if err := validateAuth(cfg.Spec.Auth); err != nil {
		return err
	}

	if err := validateAuthorization(cfg.Spec.Authorization); err != nil {
		return err
	}

	if err := validateRateLimit(cfg.Spec.RateLimit); err != nil {
		return err
	}

	return nil
}

func validateServer(server *ServerConfig) error {
	if server == nil {
		return fmt.Errorf("spec.server is required")
	}

	if server.Address == "" {
		return fmt.Errorf("spec.server.address is required")
	}

	if server.TLS != nil && server.TLS.Enabled {
		if server.TLS.CertFile == "" || server.TLS.KeyFile == "" {
			return fmt.Errorf("spec.server.tls requires certFile and keyFile when enabled")
		}
	}

	return nil
}

func validateAuth(auth *AuthConfig) error {
	if auth == nil || !auth.Enabled {
		return nil
	}

	hasMethod := (auth.Basic != nil && auth.Basic.Enabled) ||
		(auth.Preauth != nil && auth.Preauth.Enabled) ||
		(auth.JWT != nil && auth.JWT.Enabled)
	if !hasMethod && !auth.AllowAnonymous {
		return fmt.Errorf("spec.auth: at least one authentication method must be enabled")
	}

	for i, user := range auth.Users {
		if user.Username == "" {
			return fmt.Errorf("spec.auth.users[%d]: username is required", i)
		}
		if user.Password != "" && user.PasswordHash != "" {
			return fmt.Errorf("spec.auth.users[%d]: password and passwordHash are mutually exclusive", i)
		}
	}

	if auth.JWT != nil && auth.JWT.Enabled {
		if auth.JWT.Secret == "" && auth.JWT.PublicKeyFile == "" {
			return fmt.Errorf("spec.auth.jwt requires secret or publicKeyFile")
		}
	}

	return nil
}

// validateAuthorization checks the rule list shape. Pattern syntax and
// expression compilation are validated by the authorization engine itself.
func validateAuthorization(authz *AuthorizationConfig) error {
	if authz == nil || !authz.Enabled {
		return nil
	}

	if len(authz.Rules) == 0 {
		return fmt.Errorf("spec.authorization.rules must contain at least one rule")
	}

	for i, rule := range authz.Rules {
		if rule.Pattern == "" {
			return fmt.Errorf("spec.authorization.rules[%d]: pattern is required", i)
		}
		if rule.Require == "" {
			return fmt.Errorf("spec.authorization.rules[%d]: require is required", i)
		}
	}

	last := authz.Rules[len(authz.Rules)-1]
	if last.Pattern != "*/*" {
		return fmt.Errorf("spec.authorization.rules: last rule must use pattern */*")
	}
	if req := strings.ToLower(last.Require); req != "permit" && req != "deny" {
		return fmt.Errorf("spec.authorization.rules: last rule must be an unconditional permit or deny")
	}

	if authz.Cache != nil && authz.Cache.Enabled {
		backend := authz.Cache.Backend
		if backend != "" && backend != "memory" && backend != "redis" {
			return fmt.Errorf("spec.authorization.cache: unknown backend %q", backend)
		}
		if backend == "redis" && (authz.Cache.Redis == nil || authz.Cache.Redis.Addr == "") {
			return fmt.Errorf("spec.authorization.cache: redis backend requires addr")
		}
	}

	return nil
}

func validateRateLimit(rl *RateLimitConfig) error {
	if rl == nil || !rl.Enabled {
		return nil
	}

	if rl.RequestsPerSecond <= 0 {
		return fmt.Errorf("spec.rateLimit.requestsPerSecond must be positive")
	}
	if rl.Burst < 0 {
		return fmt.Errorf("spec.rateLimit.burst must not be negative")
	}

	return nil
}
