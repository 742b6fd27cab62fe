package authz

import (
	"errors"
	"strings"
)

// Wildcard tokens recognized in method patterns.
const (
	// WildcardSegment matches exactly one arbitrary non-empty segment.
	WildcardSegment = "*"

	// prefixWildcardSuffix marks a prefix match; "grpc.*" matches any
	// value starting with "grpc.", including "grpc." itself.
	prefixWildcardSuffix = ".*"
)

// segmentKind is the matching mode for one pattern segment.
type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentAny
	segmentPrefix
)

// segmentMatcher matches one segment of a method pattern.
type segmentMatcher struct {
	kind  segmentKind
	value string
}

// matches reports whether the segment matcher accepts the given value.
func (m segmentMatcher) matches(value string) bool {
	switch m.kind {
	case segmentAny:
		return value != ""
	case segmentPrefix:
		return strings.HasPrefix(value, m.value)
	default:
		return value == m.value
	}
}

// MethodPattern identifies RPC methods as "<service>/<method>". Either
// segment may be the * wildcard or end in .* for a prefix match. Immutable
// after construction.
type MethodPattern struct {
	raw     string
	service segmentMatcher
	method  segmentMatcher
}

// ParseMethodPattern parses a method pattern string. The pattern must
// contain exactly one / separator and both segments must be non-empty.
func ParseMethodPattern(pattern string) (MethodPattern, error) {
	service, method, ok := strings.Cut(pattern, "/")
	if !ok {
		return MethodPattern{}, errors.New("pattern must contain a / separator")
	}
	if strings.Contains(method, "/") {
		return MethodPattern{}, errors.New("pattern must contain exactly one / separator")
	}
	if service == "" {
		return MethodPattern{}, errors.New("pattern has an empty service segment")
	}
	if method == "" {
		return MethodPattern{}, errors.New("pattern has an empty method segment")
	}

	return MethodPattern{
		raw:     pattern,
		service: parseSegment(service),
		method:  parseSegment(method),
	}, nil
}

// parseSegment classifies one pattern segment.
func parseSegment(segment string) segmentMatcher {
	switch {
	case segment == WildcardSegment:
		return segmentMatcher{kind: segmentAny}
	case strings.HasSuffix(segment, prefixWildcardSuffix):
		// Keep the dot: "grpc.*" matches "grpc." plus any suffix.
		return segmentMatcher{kind: segmentPrefix, value: segment[:len(segment)-1]}
	default:
		return segmentMatcher{kind: segmentLiteral, value: segment}
	}
}

// Matches reports whether the pattern matches the given service and method.
func (p MethodPattern) Matches(service, method string) bool {
	return p.service.matches(service) && p.method.matches(method)
}

// IsCatchAll reports whether the pattern is the */* pattern matching every
// call.
func (p MethodPattern) IsCatchAll() bool {
	return p.service.kind == segmentAny && p.method.kind == segmentAny
}

// String returns the original pattern string.
func (p MethodPattern) String() string {
	return p.raw
}
