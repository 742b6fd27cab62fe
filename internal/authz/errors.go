package authz

import (
	"errors"
	"fmt"
)

// Common authorization errors.
var (
	// ErrNoIdentity indicates that no identity was found in the context.
	ErrNoIdentity = errors.New("no identity in context")

	// ErrEmptyRuleSet indicates that a rule set was built without rules.
	ErrEmptyRuleSet = errors.New("rule set must contain at least one rule")

	// ErrMissingCatchAll indicates that the last rule is not an
	// unconditional */* catch-all.
	ErrMissingCatchAll = errors.New("last rule must be an unconditional */* catch-all")
)

// ConfigError represents an invalid rule set configuration. It is returned
// only at construction time and must prevent server startup.
type ConfigError struct {
	// Err is the underlying error.
	Err error

	// Rule is the name or pattern of the offending rule, if known.
	Rule string
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("invalid authorization config: rule %q: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("invalid authorization config: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new configuration error.
func NewConfigError(rule string, err error) *ConfigError {
	return &ConfigError{Err: err, Rule: rule}
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsNoIdentity checks if an error is a no identity error.
func IsNoIdentity(err error) bool {
	return errors.Is(err, ErrNoIdentity)
}
