package authz

import (
	"github.com/google/cel-go/cel"
)

// CallContext describes one incoming call for evaluation. Created per call
// by the transport adapter; read-only to the engine.
type CallContext struct {
	// Service is the fully-qualified service name.
	Service string

	// Method is the method name within the service.
	Method string

	// Subject is the caller's subject identifier.
	Subject string

	// Capabilities is the caller's granted capability set.
	Capabilities []string
}

// HasCapability reports whether the caller holds the given capability.
func (c *CallContext) HasCapability(capability string) bool {
	for _, granted := range c.Capabilities {
		if granted == capability {
			return true
		}
	}
	return false
}

// Decision is the outcome of evaluating one call against a rule set.
type Decision struct {
	// Allowed indicates if the call is allowed.
	Allowed bool

	// Reason is the reason for the decision.
	Reason string

	// Rule is the name of the rule that made the decision.
	Rule string

	// Cached indicates if the decision was served from a cache.
	Cached bool
}

// Decision reasons for the unconditional requirement kinds.
const (
	ReasonPermitRule = "permit rule"
	ReasonDenyRule   = "explicit deny rule"
)

// compiledRule is one rule with its pattern parsed and, for expression
// requirements, the CEL program compiled.
type compiledRule struct {
	name        string
	pattern     MethodPattern
	requirement Requirement
	program     cel.Program
}

// RuleSet is an ordered, immutable sequence of compiled rules ending in an
// unconditional */* catch-all. Safe for concurrent evaluation without locks.
type RuleSet struct {
	rules []compiledRule
}

// NewRuleSet compiles an ordered rule list into a RuleSet. It returns a
// ConfigError when the list is empty, a pattern is invalid, a CEL expression
// does not compile, or the last rule is not an unconditional */* catch-all.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, NewConfigError("", ErrEmptyRuleSet)
	}

	var env *cel.Env
	compiled := make([]compiledRule, 0, len(rules))

	for _, rule := range rules {
		name := rule.Name
		if name == "" {
			name = rule.Pattern
		}

		pattern, err := ParseMethodPattern(rule.Pattern)
		if err != nil {
			return nil, NewConfigError(name, err)
		}
		if err := rule.Requirement.validate(); err != nil {
			return nil, NewConfigError(name, err)
		}

		cr := compiledRule{
			name:        name,
			pattern:     pattern,
			requirement: rule.Requirement,
		}

		if rule.Requirement.Kind() == RequirementExpression {
			if env == nil {
				env, err = newCELEnvironment()
				if err != nil {
					return nil, NewConfigError(name, err)
				}
			}
			cr.program, err = compileExpression(env, rule.Requirement.Expression())
			if err != nil {
				return nil, NewConfigError(name, err)
			}
		}

		compiled = append(compiled, cr)
	}

	last := compiled[len(compiled)-1]
	if !last.pattern.IsCatchAll() || !last.requirement.IsUnconditional() {
		return nil, NewConfigError(last.name, ErrMissingCatchAll)
	}

	return &RuleSet{rules: compiled}, nil
}

// MustNewRuleSet is like NewRuleSet but panics on error. For tests and
// static rule tables.
func MustNewRuleSet(rules []Rule) *RuleSet {
	rs, err := NewRuleSet(rules)
	if err != nil {
		panic(err)
	}
	return rs
}

// Evaluate evaluates one call against the rule set. It is a pure function
// of its inputs: no side effects, no errors, always exactly one decision.
func (rs *RuleSet) Evaluate(ctx *CallContext) Decision {
	for i := range rs.rules {
		rule := &rs.rules[i]
		if !rule.pattern.Matches(ctx.Service, ctx.Method) {
			continue
		}
		return rule.decide(ctx)
	}

	// Unreachable for valid rule sets: the trailing catch-all matches
	// every call.
	return Decision{Allowed: false, Reason: ReasonDenyRule}
}

// decide applies the rule's requirement to the call.
func (r *compiledRule) decide(ctx *CallContext) Decision {
	switch r.requirement.Kind() {
	case RequirementPermit:
		return Decision{Allowed: true, Reason: ReasonPermitRule, Rule: r.name}
	case RequirementDeny:
		return Decision{Allowed: false, Reason: ReasonDenyRule, Rule: r.name}
	case RequirementCapability:
		capability := r.requirement.Capability()
		if ctx.HasCapability(capability) {
			return Decision{Allowed: true, Reason: "capability " + capability, Rule: r.name}
		}
		return Decision{Allowed: false, Reason: "missing capability " + capability, Rule: r.name}
	default:
		return r.decideExpression(ctx)
	}
}

// decideExpression evaluates the compiled CEL program. Evaluation errors
// deny the call.
func (r *compiledRule) decideExpression(ctx *CallContext) Decision {
	result, _, err := r.program.Eval(activation(ctx))
	if err != nil {
		return Decision{Allowed: false, Reason: "expression error", Rule: r.name}
	}
	if allowed, ok := result.Value().(bool); ok && allowed {
		return Decision{Allowed: true, Reason: "expression satisfied", Rule: r.name}
	}
	return Decision{Allowed: false, Reason: "expression not satisfied", Rule: r.name}
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// RuleNames returns the rule names in declaration order.
func (rs *RuleSet) RuleNames() []string {
	names := make([]string, len(rs.rules))
	for i := range rs.rules {
		names[i] = rs.rules[i].name
	}
	return names
}
