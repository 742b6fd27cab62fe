// Package authz implements a method-scoped authorization rule engine for
// gRPC interceptors.
//
// A RuleSet is an ordered list of rules, each pairing a method pattern
// ("<service>/<method>", with * and prefix wildcards) with a requirement:
// permit, deny, a required capability, or a CEL expression. Evaluation walks
// the list in declaration order and the first matching rule decides the call.
// Every RuleSet must end with an unconditional */* catch-all, so evaluation
// always terminates with a decision.
//
// RuleSets are immutable after construction and safe for concurrent
// evaluation without locking. Configuration problems (bad pattern syntax,
// missing catch-all, CEL compile errors) surface as a ConfigError at
// construction time; a runtime deny is a normal decision, not an error.
package authz
