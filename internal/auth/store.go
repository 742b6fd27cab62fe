package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// User is an entry in the user store.
type User struct {
	// Username is the unique login name.
	Username string

	// Capabilities contains the authorization capabilities granted to the user.
	Capabilities []string

	// passwordHash is the bcrypt hash of the user's password. Empty for
	// users that can only authenticate through the preauth header.
	passwordHash []byte
}

// UserConfig describes a user in configuration. Exactly one of Password
// (hashed at load time) or PasswordHash (precomputed bcrypt hash) may be set.
type UserConfig struct {
	// Username is the unique login name.
	Username string `yaml:"username" json:"username"`

	// Password is a plaintext password, hashed with bcrypt at load time.
	// Intended for development setups only.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// PasswordHash is a precomputed bcrypt hash.
	PasswordHash string `yaml:"passwordHash,omitempty" json:"passwordHash,omitempty"`

	// Capabilities contains the capabilities granted to the user.
	Capabilities []string `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
}

// UserStore resolves and authenticates users.
type UserStore interface {
	// Lookup returns the user with the given username.
	Lookup(username string) (*User, bool)

	// Authenticate verifies the password for the given username.
	Authenticate(username, password string) (*User, error)
}

// memoryUserStore is an in-memory, read-only user store.
type memoryUserStore struct {
	users map[string]*User
}

// NewMemoryUserStore builds an in-memory user store from configuration.
// The store is immutable after construction and safe for concurrent use.
func NewMemoryUserStore(users []UserConfig) (UserStore, error) {
	store := &memoryUserStore{
		users: make(map[string]*User, len(users)),
	}

	for i := range users {
		user, err := buildUser(&users[i])
		if err != nil {
			return nil, err
		}
		if _, exists := store.users[user.Username]; exists {
			return nil, fmt.Errorf("duplicate user: %s", user.Username)
		}
		store.users[user.Username] = user
	}

	return store, nil
}

// buildUser converts a UserConfig into a User, hashing plaintext passwords.
func buildUser(cfg *UserConfig) (*User, error) {
	if cfg.Username == "" {
		return nil, errors.New("user is missing a username")
	}
	if cfg.Password != "" && cfg.PasswordHash != "" {
		return nil, fmt.Errorf("user %s: password and passwordHash are mutually exclusive", cfg.Username)
	}

	user := &User{
		Username:     cfg.Username,
		Capabilities: append([]string(nil), cfg.Capabilities...),
	}

	switch {
	case cfg.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, fmt.Errorf("user %s: invalid bcrypt hash: %w", cfg.Username, err)
		}
		user.passwordHash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("user %s: failed to hash password: %w", cfg.Username, err)
		}
		user.passwordHash = hash
	}

	return user, nil
}

// Lookup returns the user with the given username.
func (s *memoryUserStore) Lookup(username string) (*User, bool) {
	user, ok := s.users[username]
	return user, ok
}

// Authenticate verifies the password for the given username.
func (s *memoryUserStore) Authenticate(username, password string) (*User, error) {
	user, ok := s.users[username]
	if !ok {
		// Burn a comparison anyway so unknown users cost the same as
		// known users with a wrong password.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrUnknownUser
	}

	if len(user.passwordHash) == 0 {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// dummyHash is a valid bcrypt hash used to equalize timing for unknown users.
var dummyHash = func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("grpcguard-dummy"), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return hash
}()

// Ensure memoryUserStore implements UserStore.
var _ UserStore = (*memoryUserStore)(nil)
