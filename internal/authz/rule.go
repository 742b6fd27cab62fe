package authz

import "fmt"

// RequirementKind discriminates the requirement variants.
type RequirementKind string

// Requirement kinds.
const (
	// RequirementPermit permits the call unconditionally.
	RequirementPermit RequirementKind = "permit"

	// RequirementDeny denies the call unconditionally.
	RequirementDeny RequirementKind = "deny"

	// RequirementCapability requires the caller to hold a capability.
	RequirementCapability RequirementKind = "capability"

	// RequirementExpression requires a CEL expression to evaluate to true.
	RequirementExpression RequirementKind = "expression"
)

// Requirement is the authorization predicate attached to a rule. The zero
// value is invalid; use the constructors.
type Requirement struct {
	kind       RequirementKind
	capability string
	expression string
}

// Permit returns a requirement that permits unconditionally.
func Permit() Requirement {
	return Requirement{kind: RequirementPermit}
}

// Deny returns a requirement that denies unconditionally.
func Deny() Requirement {
	return Requirement{kind: RequirementDeny}
}

// RequireCapability returns a requirement that the caller holds the given
// capability.
func RequireCapability(capability string) Requirement {
	return Requirement{kind: RequirementCapability, capability: capability}
}

// RequireExpression returns a requirement that the given CEL expression
// evaluates to true for the call. The expression is compiled when the rule
// set is built.
func RequireExpression(expression string) Requirement {
	return Requirement{kind: RequirementExpression, expression: expression}
}

// Kind returns the requirement kind.
func (r Requirement) Kind() RequirementKind {
	return r.kind
}

// Capability returns the required capability for capability requirements.
func (r Requirement) Capability() string {
	return r.capability
}

// Expression returns the CEL expression for expression requirements.
func (r Requirement) Expression() string {
	return r.expression
}

// IsUnconditional reports whether the requirement decides without looking at
// the caller.
func (r Requirement) IsUnconditional() bool {
	return r.kind == RequirementPermit || r.kind == RequirementDeny
}

// validate checks the requirement for construction-time errors.
func (r Requirement) validate() error {
	switch r.kind {
	case RequirementPermit, RequirementDeny:
		return nil
	case RequirementCapability:
		if r.capability == "" {
			return fmt.Errorf("capability requirement with empty capability")
		}
		return nil
	case RequirementExpression:
		if r.expression == "" {
			return fmt.Errorf("expression requirement with empty expression")
		}
		return nil
	default:
		return fmt.Errorf("unknown requirement kind %q", string(r.kind))
	}
}

// String returns a short description of the requirement for logs.
func (r Requirement) String() string {
	switch r.kind {
	case RequirementCapability:
		return "require capability " + r.capability
	case RequirementExpression:
		return "require expression"
	default:
		return string(r.kind)
	}
}

// Rule pairs a method pattern with a requirement. Rules are evaluated in
// declaration order; the first match wins.
type Rule struct {
	// Name identifies the rule in logs and metrics. Defaults to the
	// pattern when empty.
	Name string

	// Pattern selects the methods the rule applies to.
	Pattern string

	// Requirement is the predicate applied when the pattern matches.
	Requirement Requirement
}
