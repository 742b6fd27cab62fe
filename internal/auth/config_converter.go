package auth

import (
	"github.com/vyrodovalexey/grpcguard/internal/config"
)

// ConvertFromGuardConfig converts a config.AuthConfig (the YAML document
// section) to an auth.Config (used by NewGRPCAuthenticator). Returns
// (nil, nil) when the input is nil or authentication is disabled.
func ConvertFromGuardConfig(cfg *config.AuthConfig) (*Config, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	authCfg := &Config{
		Enabled:        true,
		AllowAnonymous: cfg.AllowAnonymous,
		Users:          convertUsers(cfg.Users),
	}

	if cfg.Basic != nil {
		authCfg.Basic = &BasicConfig{Enabled: cfg.Basic.Enabled}
	}

	if cfg.Preauth != nil {
		authCfg.Preauth = &PreauthConfig{
			Enabled: cfg.Preauth.Enabled,
			Header:  cfg.Preauth.Header,
		}
	}

	if cfg.JWT != nil {
		authCfg.JWT = &JWTConfig{
			Enabled:         cfg.JWT.Enabled,
			Secret:          cfg.JWT.Secret,
			PublicKeyFile:   cfg.JWT.PublicKeyFile,
			Algorithm:       cfg.JWT.Algorithm,
			Issuer:          cfg.JWT.Issuer,
			Audience:        cfg.JWT.Audience,
			CapabilityClaim: cfg.JWT.CapabilityClaim,
			ClockSkew:       cfg.JWT.ClockSkew.Duration(),
		}
	}

	if err := authCfg.Validate(); err != nil {
		return nil, err
	}

	return authCfg, nil
}

// convertUsers converts config users to store users.
func convertUsers(src []config.UserConfig) []UserConfig {
	users := make([]UserConfig, 0, len(src))
	for _, u := range src {
		users = append(users, UserConfig{
			Username:     u.Username,
			Password:     u.Password,
			PasswordHash: u.PasswordHash,
			Capabilities: u.Capabilities,
		})
	}
	return users
}
