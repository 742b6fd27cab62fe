package auth

import (
	"errors"
	"fmt"
	"time"
)

// Config represents the authentication configuration.
type Config struct {
	// Enabled enables authentication.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// AllowAnonymous allows calls without credentials to proceed with an
	// anonymous identity. Authorization rules still apply to them.
	AllowAnonymous bool `yaml:"allowAnonymous,omitempty" json:"allowAnonymous,omitempty"`

	// Users is the in-memory user store content.
	Users []UserConfig `yaml:"users,omitempty" json:"users,omitempty"`

	// Basic configures basic authentication.
	Basic *BasicConfig `yaml:"basic,omitempty" json:"basic,omitempty"`

	// Preauth configures trusted-header authentication.
	Preauth *PreauthConfig `yaml:"preauth,omitempty" json:"preauth,omitempty"`

	// JWT configures JWT bearer authentication.
	JWT *JWTConfig `yaml:"jwt,omitempty" json:"jwt,omitempty"`
}

// BasicConfig configures basic authentication against the user store.
type BasicConfig struct {
	// Enabled enables basic authentication.
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// PreauthConfig configures trusted-header authentication. The header names
// a user in the store; no password check is performed, so this must only be
// enabled behind a front proxy that authenticates callers itself.
type PreauthConfig struct {
	// Enabled enables preauth authentication.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Header is the metadata key carrying the username. Defaults to "x-user".
	Header string `yaml:"header,omitempty" json:"header,omitempty"`
}

// JWTConfig configures JWT bearer authentication.
type JWTConfig struct {
	// Enabled enables JWT authentication.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Secret is the shared secret for HMAC algorithms.
	Secret string `yaml:"secret,omitempty" json:"secret,omitempty"`

	// PublicKeyFile is a PEM file with an RSA public key for RS256.
	PublicKeyFile string `yaml:"publicKeyFile,omitempty" json:"publicKeyFile,omitempty"`

	// Algorithm is the expected signing algorithm (HS256 or RS256).
	// Defaults to HS256 when a secret is configured, RS256 otherwise.
	Algorithm string `yaml:"algorithm,omitempty" json:"algorithm,omitempty"`

	// Issuer, when set, must match the token issuer.
	Issuer string `yaml:"issuer,omitempty" json:"issuer,omitempty"`

	// Audience, when set, must be present in the token audience.
	Audience string `yaml:"audience,omitempty" json:"audience,omitempty"`

	// CapabilityClaim is the claim holding the caller's capabilities.
	// Defaults to "roles".
	CapabilityClaim string `yaml:"capabilityClaim,omitempty" json:"capabilityClaim,omitempty"`

	// ClockSkew is the allowed clock skew during validation.
	ClockSkew time.Duration `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`
}

// DefaultPreauthHeader is the default metadata key for preauth usernames.
const DefaultPreauthHeader = "x-user"

// DefaultCapabilityClaim is the default JWT claim holding capabilities.
const DefaultCapabilityClaim = "roles"

// Validate validates the authentication configuration.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	if !c.hasAnyAuthMethod() {
		return errors.New("at least one authentication method must be configured when authentication is enabled")
	}

	if c.IsBasicEnabled() && len(c.Users) == 0 {
		return errors.New("basic authentication requires at least one user")
	}
	if c.IsPreauthEnabled() && len(c.Users) == 0 {
		return errors.New("preauth authentication requires at least one user")
	}

	if c.IsJWTEnabled() {
		if err := c.JWT.Validate(); err != nil {
			return fmt.Errorf("jwt config: %w", err)
		}
	}

	for i := range c.Users {
		if c.Users[i].Username == "" {
			return fmt.Errorf("user %d is missing a username", i)
		}
	}

	return nil
}

// Validate validates the JWT configuration.
func (c *JWTConfig) Validate() error {
	if c.Secret == "" && c.PublicKeyFile == "" {
		return errors.New("either secret or publicKeyFile must be set")
	}
	if c.Secret != "" && c.PublicKeyFile != "" {
		return errors.New("secret and publicKeyFile are mutually exclusive")
	}
	switch c.Algorithm {
	case "", "HS256", "RS256":
	default:
		return fmt.Errorf("unsupported algorithm: %s", c.Algorithm)
	}
	return nil
}

// IsBasicEnabled returns true if basic authentication is enabled.
func (c *Config) IsBasicEnabled() bool {
	return c != nil && c.Basic != nil && c.Basic.Enabled
}

// IsPreauthEnabled returns true if preauth authentication is enabled.
func (c *Config) IsPreauthEnabled() bool {
	return c != nil && c.Preauth != nil && c.Preauth.Enabled
}

// IsJWTEnabled returns true if JWT authentication is enabled.
func (c *Config) IsJWTEnabled() bool {
	return c != nil && c.JWT != nil && c.JWT.Enabled
}

// PreauthHeader returns the effective preauth metadata key.
func (c *Config) PreauthHeader() string {
	if c != nil && c.Preauth != nil && c.Preauth.Header != "" {
		return c.Preauth.Header
	}
	return DefaultPreauthHeader
}

// hasAnyAuthMethod checks if any authentication method is configured.
func (c *Config) hasAnyAuthMethod() bool {
	return c.IsBasicEnabled() || c.IsPreauthEnabled() || c.IsJWTEnabled()
}
