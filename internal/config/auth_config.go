package config

// AuthConfig configures authentication.
type AuthConfig struct {
	// Enabled enables authentication.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// AllowAnonymous lets calls without credentials proceed with an
	// anonymous identity. Authorization rules still apply.
	AllowAnonymous bool `yaml:"allowAnonymous,omitempty" json:"allowAnonymous,omitempty"`

	// Users is the in-memory user store content.
	Users []UserConfig `yaml:"users,omitempty" json:"users,omitempty"`

	// Basic configures basic authentication.
	Basic *BasicAuthConfig `yaml:"basic,omitempty" json:"basic,omitempty"`

	// Preauth configures trusted-header authentication.
	Preauth *PreauthConfig `yaml:"preauth,omitempty" json:"preauth,omitempty"`

	// JWT configures JWT bearer authentication.
	JWT *JWTConfig `yaml:"jwt,omitempty" json:"jwt,omitempty"`
}

// UserConfig describes a user in the in-memory store.
type UserConfig struct {
	// Username is the unique login name.
	Username string `yaml:"username" json:"username"`

	// Password is a plaintext password, hashed with bcrypt at load time.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// PasswordHash is a precomputed bcrypt hash.
	PasswordHash string `yaml:"passwordHash,omitempty" json:"passwordHash,omitempty"`

	// Capabilities contains the capabilities granted to the user.
	Capabilities []string `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
}

// BasicAuthConfig configures basic authentication against the user store.
type BasicAuthConfig struct {
	// Enabled enables basic authentication.
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// PreauthConfig configures trusted-header authentication.
type PreauthConfig struct {
	// Enabled enables preauth authentication.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Header is the metadata key carrying the username.
	Header string `yaml:"header,omitempty" json:"header,omitempty"`
}

// JWTConfig configures JWT bearer authentication.
type JWTConfig struct {
	// Enabled enables JWT authentication.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Secret is the shared secret for HS256.
	Secret string `yaml:"secret,omitempty" json:"secret,omitempty"`

	// PublicKeyFile is a PEM file with an RSA public key for RS256.
	PublicKeyFile string `yaml:"publicKeyFile,omitempty" json:"publicKeyFile,omitempty"`

	// Algorithm is the expected signing algorithm (HS256 or RS256).
	Algorithm string `yaml:"algorithm,omitempty" json:"algorithm,omitempty"`

	// Issuer, when set, must match the token issuer.
	Issuer string `yaml:"issuer,omitempty" json:"issuer,omitempty"`

	// Audience, when set, must be present in the token audience.
	Audience string `yaml:"audience,omitempty" json:"audience,omitempty"`

	// CapabilityClaim is the claim holding the caller's capabilities.
	CapabilityClaim string `yaml:"capabilityClaim,omitempty" json:"capabilityClaim,omitempty"`

	// ClockSkew is the allowed clock skew during validation.
	ClockSkew Duration `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`
}
