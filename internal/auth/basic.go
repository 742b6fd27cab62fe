package auth

import (
	"context"
	"encoding/base64"
	"strings"

	"google.golang.org/grpc/metadata"
)

// Metadata keys for credential extraction.
const (
	// AuthorizationKey is the metadata key carrying credentials.
	AuthorizationKey = "authorization"

	// basicPrefix is the scheme prefix for basic credentials.
	basicPrefix = "basic "

	// bearerPrefix is the scheme prefix for bearer tokens.
	bearerPrefix = "bearer "
)

// BasicCredentials holds a username/password pair extracted from metadata.
type BasicCredentials struct {
	Username string
	Password string
}

// ExtractBasicCredentials extracts basic credentials from gRPC metadata.
// Returns ErrNoCredentials when no basic authorization value is present and
// ErrInvalidCredentials when the value is malformed.
func ExtractBasicCredentials(ctx context.Context) (*BasicCredentials, error) {
	value := metadataValue(ctx, AuthorizationKey)
	if value == "" || !strings.HasPrefix(strings.ToLower(value), basicPrefix) {
		return nil, ErrNoCredentials
	}

	decoded, err := base64.StdEncoding.DecodeString(value[len(basicPrefix):])
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok || username == "" {
		return nil, ErrInvalidCredentials
	}

	return &BasicCredentials{Username: username, Password: password}, nil
}

// ExtractBearerToken extracts a bearer token from gRPC metadata.
func ExtractBearerToken(ctx context.Context) (string, error) {
	value := metadataValue(ctx, AuthorizationKey)
	if value == "" || !strings.HasPrefix(strings.ToLower(value), bearerPrefix) {
		return "", ErrNoCredentials
	}

	token := strings.TrimSpace(value[len(bearerPrefix):])
	if token == "" {
		return "", ErrNoCredentials
	}
	return token, nil
}

// metadataValue returns the first value for a metadata key, or "".
func metadataValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// BasicValidator validates basic credentials against a user store.
type BasicValidator struct {
	store UserStore
}

// NewBasicValidator creates a basic credential validator.
func NewBasicValidator(store UserStore) *BasicValidator {
	return &BasicValidator{store: store}
}

// Validate authenticates the credentials and returns the resulting identity.
func (v *BasicValidator) Validate(ctx context.Context, creds *BasicCredentials) (*Identity, error) {
	user, err := v.store.Authenticate(creds.Username, creds.Password)
	if err != nil {
		return nil, WrapAuthError(err, string(AuthTypeBasic))
	}
	return identityFromUser(user, AuthTypeBasic), nil
}

// identityFromUser builds an Identity from a store user.
func identityFromUser(user *User, authType AuthType) *Identity {
	return &Identity{
		Subject:      user.Username,
		Name:         user.Username,
		AuthType:     authType,
		AuthTime:     timeNow(),
		Capabilities: append([]string(nil), user.Capabilities...),
	}
}
