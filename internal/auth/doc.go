// Package auth provides authentication for gRPC requests.
//
// Three credential sources are supported and tried in order: JWT bearer
// tokens, basic credentials validated against the in-memory user store,
// and a trusted preauth metadata header for deployments behind a front
// proxy that has already authenticated the caller. A successful
// authentication places an Identity in the request context, where the
// authorization layer reads the caller's capabilities.
package auth
