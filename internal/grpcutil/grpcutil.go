// Package grpcutil provides helpers for gRPC method names and listener
// addresses, including unix domain socket addresses as specified by the
// gRPC naming scheme (https://grpc.github.io/grpc/cpp/md_doc_naming.html).
package grpcutil

import (
	"fmt"
	"net"
	"strings"
)

const (
	// DomainSocketScheme is the scheme of a unix domain socket address.
	DomainSocketScheme = "unix"

	// DomainSocketPrefix is the scheme prefix of a unix domain socket address.
	DomainSocketPrefix = DomainSocketScheme + ":"

	// AnyIPAddress instructs the server to listen on any IPv4 and IPv6 address.
	AnyIPAddress = "*"
)

// SplitFullMethod splits a gRPC full method name into service and method.
// The full method format is "/package.Service/Method"; the leading slash is
// optional. When no separator is present the whole input is returned as the
// method with an empty service.
func SplitFullMethod(fullMethod string) (service, method string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")

	idx := strings.LastIndex(fullMethod, "/")
	if idx < 0 {
		return "", fullMethod
	}
	return fullMethod[:idx], fullMethod[idx+1:]
}

// ServiceName extracts the fully-qualified service name from a full method name.
func ServiceName(fullMethod string) string {
	service, _ := SplitFullMethod(fullMethod)
	return service
}

// MethodName extracts the bare method name from a full method name.
func MethodName(fullMethod string) string {
	_, method := SplitFullMethod(fullMethod)
	return method
}

// IsDomainSocketAddress reports whether the address uses the unix scheme.
func IsDomainSocketAddress(address string) bool {
	return strings.HasPrefix(address, DomainSocketPrefix)
}

// ExtractDomainSocketPath extracts the filesystem path from a unix domain
// socket address. Both "unix:path" and "unix://absolute/path" forms are
// accepted.
func ExtractDomainSocketPath(address string) (string, error) {
	if !IsDomainSocketAddress(address) {
		return "", fmt.Errorf("%s is not a valid domain socket address", address)
	}
	path := address[len(DomainSocketPrefix):]
	// The "unix://" form carries an absolute path after the authority slashes.
	path = strings.TrimPrefix(path, "//")
	if path == "" {
		return "", fmt.Errorf("%s is missing the socket path", address)
	}
	return path, nil
}

// Listen creates a net.Listener for the given address. Addresses with the
// unix scheme produce a unix domain socket listener; everything else is
// treated as a TCP host:port, with the AnyIPAddress wildcard mapping to an
// unspecified host.
func Listen(address string) (net.Listener, error) {
	if IsDomainSocketAddress(address) {
		path, err := ExtractDomainSocketPath(address)
		if err != nil {
			return nil, err
		}
		return net.Listen(DomainSocketScheme, path)
	}

	if host, port, err := net.SplitHostPort(address); err == nil && host == AnyIPAddress {
		address = net.JoinHostPort("", port)
	}

	return net.Listen("tcp", address)
}
