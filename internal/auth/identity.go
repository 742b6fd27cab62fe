package auth

import (
	"context"
	"time"
)

// Identity represents an authenticated caller.
type Identity struct {
	// Subject is the unique identifier for the identity (e.g., username).
	Subject string `json:"sub"`

	// Name is the display name of the identity.
	Name string `json:"name,omitempty"`

	// AuthType is the authentication method used.
	AuthType AuthType `json:"auth_type"`

	// AuthTime is when the authentication occurred.
	AuthTime time.Time `json:"auth_time,omitempty"`

	// ExpiresAt is when the identity expires.
	ExpiresAt time.Time `json:"exp,omitempty"`

	// Capabilities contains the authorization capabilities (roles)
	// granted to the identity.
	Capabilities []string `json:"capabilities,omitempty"`

	// Claims contains additional claims from the authentication.
	Claims map[string]interface{} `json:"claims,omitempty"`

	// Metadata contains additional metadata about the identity.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AuthType represents the type of authentication used.
type AuthType string

// Authentication types.
const (
	AuthTypeJWT       AuthType = "jwt"
	AuthTypeBasic     AuthType = "basic"
	AuthTypePreauth   AuthType = "preauth"
	AuthTypeAnonymous AuthType = "anonymous"
)

// IsExpired returns true if the identity has expired.
func (i *Identity) IsExpired() bool {
	if i.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(i.ExpiresAt)
}

// HasCapability checks if the identity has a specific capability.
func (i *Identity) HasCapability(capability string) bool {
	for _, c := range i.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// HasAnyCapability checks if the identity has any of the specified capabilities.
func (i *Identity) HasAnyCapability(capabilities ...string) bool {
	for _, capability := range capabilities {
		if i.HasCapability(capability) {
			return true
		}
	}
	return false
}

// GetClaim returns a claim value by name.
func (i *Identity) GetClaim(name string) (interface{}, bool) {
	if i.Claims == nil {
		return nil, false
	}
	v, ok := i.Claims[name]
	return v, ok
}

// identityContextKey is the context key type for identities.
type identityContextKey struct{}

// ContextWithIdentity adds an identity to the context.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the identity from the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// AnonymousIdentity returns an anonymous identity with no capabilities.
func AnonymousIdentity() *Identity {
	return &Identity{
		Subject:  "anonymous",
		AuthType: AuthTypeAnonymous,
		AuthTime: time.Now(),
	}
}
