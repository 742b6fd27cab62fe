package auth

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vyrodovalexey/grpcguard/internal/observability"
)

// GRPCAuthenticator handles authentication for gRPC requests.
type GRPCAuthenticator interface {
	// Authenticate authenticates a gRPC request.
	Authenticate(ctx context.Context) (*Identity, error)

	// UnaryInterceptor returns a unary server interceptor for authentication.
	UnaryInterceptor() grpc.UnaryServerInterceptor

	// StreamInterceptor returns a stream server interceptor for authentication.
	StreamInterceptor() grpc.StreamServerInterceptor
}

// grpcAuthenticator implements the GRPCAuthenticator interface.
type grpcAuthenticator struct {
	config           *Config
	store            UserStore
	jwtValidator     *JWTValidator
	basicValidator   *BasicValidator
	preauthValidator *PreauthValidator
	logger           observability.Logger
	metrics          *Metrics
}

// GRPCAuthenticatorOption is a functional option for the gRPC authenticator.
type GRPCAuthenticatorOption func(*grpcAuthenticator)

// WithGRPCAuthenticatorLogger sets the logger.
func WithGRPCAuthenticatorLogger(logger observability.Logger) GRPCAuthenticatorOption {
	return func(a *grpcAuthenticator) {
		a.logger = logger
	}
}

// WithGRPCAuthenticatorMetrics sets the metrics.
func WithGRPCAuthenticatorMetrics(metrics *Metrics) GRPCAuthenticatorOption {
	return func(a *grpcAuthenticator) {
		a.metrics = metrics
	}
}

// WithGRPCJWTValidator sets the JWT validator.
func WithGRPCJWTValidator(validator *JWTValidator) GRPCAuthenticatorOption {
	return func(a *grpcAuthenticator) {
		a.jwtValidator = validator
	}
}

// WithGRPCUserStore sets the user store.
func WithGRPCUserStore(store UserStore) GRPCAuthenticatorOption {
	return func(a *grpcAuthenticator) {
		a.store = store
	}
}

// NewGRPCAuthenticator creates a new gRPC authenticator. Credential schemes
// are tried in order: JWT bearer, basic, preauth header.
func NewGRPCAuthenticator(config *Config, opts ...GRPCAuthenticatorOption) (GRPCAuthenticator, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &grpcAuthenticator{
		config: config,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.metrics == nil {
		a.metrics = NewMetrics("grpcguard")
	}

	if a.store == nil && len(config.Users) > 0 {
		store, err := NewMemoryUserStore(config.Users)
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	if config.IsJWTEnabled() && a.jwtValidator == nil {
		validator, err := NewJWTValidator(config.JWT, WithJWTValidatorLogger(a.logger))
		if err != nil {
			return nil, err
		}
		a.jwtValidator = validator
	}
	if config.IsBasicEnabled() {
		a.basicValidator = NewBasicValidator(a.store)
	}
	if config.IsPreauthEnabled() {
		a.preauthValidator = NewPreauthValidator(a.store, config.PreauthHeader())
	}

	return a, nil
}

// Authenticate authenticates a gRPC request.
func (a *grpcAuthenticator) Authenticate(ctx context.Context) (*Identity, error) {
	start := time.Now()

	var identity *Identity
	var authErr error

	// Try JWT authentication
	if a.config.IsJWTEnabled() {
		identity, authErr = a.authenticateJWT(ctx)
		if authErr == nil {
			a.metrics.RecordRequest(string(AuthTypeJWT), "success", time.Since(start))
			return identity, nil
		}
		if !errors.Is(authErr, ErrNoCredentials) {
			a.logger.Debug("JWT authentication failed", observability.Error(authErr))
			a.metrics.RecordRequest(string(AuthTypeJWT), "failure", time.Since(start))
			a.metrics.RecordFailure(string(AuthTypeJWT), failureReason(authErr))
			return nil, authErr
		}
	}

	// Try basic authentication
	if a.config.IsBasicEnabled() {
		identity, authErr = a.authenticateBasic(ctx)
		if authErr == nil {
			a.metrics.RecordRequest(string(AuthTypeBasic), "success", time.Since(start))
			return identity, nil
		}
		if !errors.Is(authErr, ErrNoCredentials) {
			a.logger.Debug("basic authentication failed", observability.Error(authErr))
			a.metrics.RecordRequest(string(AuthTypeBasic), "failure", time.Since(start))
			a.metrics.RecordFailure(string(AuthTypeBasic), failureReason(authErr))
			return nil, authErr
		}
	}

	// Try preauth authentication
	if a.config.IsPreauthEnabled() {
		identity, authErr = a.preauthValidator.Validate(ctx)
		if authErr == nil {
			a.metrics.RecordRequest(string(AuthTypePreauth), "success", time.Since(start))
			return identity, nil
		}
		if !errors.Is(authErr, ErrNoCredentials) {
			a.logger.Debug("preauth authentication failed", observability.Error(authErr))
			a.metrics.RecordRequest(string(AuthTypePreauth), "failure", time.Since(start))
			a.metrics.RecordFailure(string(AuthTypePreauth), failureReason(authErr))
			return nil, authErr
		}
	}

	// No credentials at all
	if a.config.AllowAnonymous {
		a.metrics.RecordRequest(string(AuthTypeAnonymous), "success", time.Since(start))
		return AnonymousIdentity(), nil
	}

	a.metrics.RecordRequest("unknown", "failure", time.Since(start))
	a.metrics.RecordFailure("unknown", "no_credentials")
	return nil, ErrNoCredentials
}

// authenticateJWT authenticates using a bearer token.
func (a *grpcAuthenticator) authenticateJWT(ctx context.Context) (*Identity, error) {
	token, err := ExtractBearerToken(ctx)
	if err != nil {
		return nil, err
	}
	return a.jwtValidator.Validate(ctx, token)
}

// authenticateBasic authenticates using basic credentials.
func (a *grpcAuthenticator) authenticateBasic(ctx context.Context) (*Identity, error) {
	creds, err := ExtractBasicCredentials(ctx)
	if err != nil {
		return nil, err
	}
	return a.basicValidator.Validate(ctx, creds)
}

// failureReason maps an authentication error to a metrics label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "error"
	}
}

// UnaryInterceptor returns a unary server interceptor for authentication.
func (a *grpcAuthenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
	) (interface{}, error) {
		identity, err := a.Authenticate(ctx)
		if err != nil {
			return nil, a.toGRPCError(err)
		}

		ctx = ContextWithIdentity(ctx, identity)
		return handler(ctx, req)
	}
}

// StreamInterceptor returns a stream server interceptor for authentication.
func (a *grpcAuthenticator) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		identity, err := a.Authenticate(ctx)
		if err != nil {
			return a.toGRPCError(err)
		}

		wrapped := &authenticatedServerStream{
			ServerStream: ss,
			ctx:          ContextWithIdentity(ctx, identity),
		}

		return handler(srv, wrapped)
	}
}

// toGRPCError converts an authentication error to a gRPC error.
func (a *grpcAuthenticator) toGRPCError(err error) error {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "token expired")
	case errors.Is(err, ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "invalid token")
	default:
		return status.Error(codes.Unauthenticated, "authentication failed")
	}
}

// authenticatedServerStream wraps a grpc.ServerStream with an authenticated context.
type authenticatedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the authenticated context.
func (s *authenticatedServerStream) Context() context.Context {
	return s.ctx
}

// Ensure grpcAuthenticator implements GRPCAuthenticator.
var _ GRPCAuthenticator = (*grpcAuthenticator)(nil)
