package auth

import (
	"context"
	"time"
)

// timeNow is overridable in tests.
var timeNow = time.Now

// PreauthValidator resolves a trusted metadata header against the user store.
// No password check is performed; the front proxy that sets the header is
// responsible for authenticating the caller.
type PreauthValidator struct {
	store  UserStore
	header string
}

// NewPreauthValidator creates a preauth validator reading the given
// metadata key (DefaultPreauthHeader when empty).
func NewPreauthValidator(store UserStore, header string) *PreauthValidator {
	if header == "" {
		header = DefaultPreauthHeader
	}
	return &PreauthValidator{store: store, header: header}
}

// Header returns the metadata key the validator reads.
func (v *PreauthValidator) Header() string {
	return v.header
}

// Validate resolves the preauth header to an identity.
func (v *PreauthValidator) Validate(ctx context.Context) (*Identity, error) {
	username := metadataValue(ctx, v.header)
	if username == "" {
		return nil, ErrNoCredentials
	}

	user, ok := v.store.Lookup(username)
	if !ok {
		return nil, WrapAuthError(ErrUnknownUser, string(AuthTypePreauth))
	}

	return identityFromUser(user, AuthTypePreauth), nil
}
