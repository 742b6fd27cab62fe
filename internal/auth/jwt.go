package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/grpcguard/internal/observability"
)

// JWTValidator validates JWT bearer tokens and maps them to identities.
type JWTValidator struct {
	config    *JWTConfig
	algorithm jwa.SignatureAlgorithm
	key       interface{}
	logger    observability.Logger
}

// JWTValidatorOption is a functional option for the JWT validator.
type JWTValidatorOption func(*JWTValidator)

// WithJWTValidatorLogger sets the logger.
func WithJWTValidatorLogger(logger observability.Logger) JWTValidatorOption {
	return func(v *JWTValidator) {
		v.logger = logger
	}
}

// NewJWTValidator creates a new JWT validator from configuration.
func NewJWTValidator(config *JWTConfig, opts ...JWTValidatorOption) (*JWTValidator, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	v := &JWTValidator{
		config: config,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	switch {
	case config.Secret != "":
		v.algorithm = jwa.HS256
		v.key = []byte(config.Secret)
	default:
		key, err := loadRSAPublicKey(config.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load public key: %w", err)
		}
		v.algorithm = jwa.RS256
		v.key = key
	}

	if config.Algorithm != "" && config.Algorithm != v.algorithm.String() {
		return nil, fmt.Errorf("algorithm %s does not match the configured key material", config.Algorithm)
	}

	return v, nil
}

// loadRSAPublicKey loads a PEM-encoded RSA public key from a file.
func loadRSAPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from validated configuration
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return key, nil
}

// Validate validates a token and returns the resulting identity.
func (v *JWTValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	parseOpts := []jwt.ParseOption{
		jwt.WithContext(ctx),
		jwt.WithKey(v.algorithm, v.key),
		jwt.WithValidate(true),
	}
	if v.config.ClockSkew > 0 {
		parseOpts = append(parseOpts, jwt.WithAcceptableSkew(v.config.ClockSkew))
	}
	if v.config.Issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		parseOpts = append(parseOpts, jwt.WithAudience(v.config.Audience))
	}

	parsed, err := jwt.Parse([]byte(token), parseOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, WrapAuthError(ErrTokenExpired, string(AuthTypeJWT))
		}
		v.logger.Debug("token validation failed", observability.Error(err))
		return nil, WrapAuthError(ErrInvalidToken, string(AuthTypeJWT))
	}

	identity := &Identity{
		Subject:      parsed.Subject(),
		AuthType:     AuthTypeJWT,
		AuthTime:     timeNow(),
		ExpiresAt:    parsed.Expiration(),
		Claims:       parsed.PrivateClaims(),
		Capabilities: v.extractCapabilities(parsed),
	}

	if identity.Subject == "" {
		return nil, WrapAuthError(ErrInvalidToken, string(AuthTypeJWT))
	}

	return identity, nil
}

// extractCapabilities reads the capability claim from the token.
func (v *JWTValidator) extractCapabilities(token jwt.Token) []string {
	claim := v.config.CapabilityClaim
	if claim == "" {
		claim = DefaultCapabilityClaim
	}

	value, ok := token.Get(claim)
	if !ok {
		return nil
	}
	return toStringSlice(value)
}

// toStringSlice normalizes a claim value into a string slice. Accepts
// string slices, interface slices of strings, and space-delimited strings.
func toStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case string:
		if v == "" {
			return nil
		}
		return strings.Fields(v)
	default:
		return nil
	}
}
